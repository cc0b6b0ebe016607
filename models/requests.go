package models

// CreateOrderRequest is the order payload sent by the client once an offer is
// accepted. Status, payment and fee fields are always computed server side.
type CreateOrderRequest struct {
	OrderID             string  `json:"orderId" validate:"required"`
	InvoiceID           string  `json:"invoiceId" validate:"required"`
	Offer               Offer   `json:"offer"`
	GigID               string  `json:"gigId" validate:"required"`
	SellerID            string  `json:"sellerId" validate:"required"`
	SellerUsername      string  `json:"sellerUsername" validate:"required"`
	SellerImage         string  `json:"sellerImage"`
	SellerEmail         string  `json:"sellerEmail" validate:"required,email"`
	GigCoverImage       string  `json:"gigCoverImage"`
	GigMainTitle        string  `json:"gigMainTitle" validate:"required"`
	GigBasicTitle       string  `json:"gigBasicTitle"`
	GigBasicDescription string  `json:"gigBasicDescription"`
	BuyerID             string  `json:"buyerId" validate:"required"`
	BuyerUsername       string  `json:"buyerUsername" validate:"required"`
	BuyerEmail          string  `json:"buyerEmail" validate:"required,email"`
	BuyerImage          string  `json:"buyerImage"`
	Quantity            int     `json:"quantity" validate:"required,gte=1"`
	Price               float64 `json:"price" validate:"required,gt=0"`
	Requirements        string  `json:"requirements"`
}

// CreateOrderResult is returned to the caller that starts the payment flow.
type CreateOrderResult struct {
	Order *Order `json:"order"`
	TxRef string `json:"txRef"`
}

// VerificationInput identifies a completed gateway payment.
type VerificationInput struct {
	TransactionID string `validate:"required"`
	TxRef         string `validate:"required"`
}

// CancelOrderData carries the buyer and seller aggregates forwarded on cancel.
type CancelOrderData struct {
	SellerID      string   `json:"sellerId"`
	BuyerID       string   `json:"buyerId"`
	PurchasedGigs []string `json:"purchasedGigs"`
}

type CancelOrderRequest struct {
	OrderData CancelOrderData `json:"orderData"`
}

// ApproveOrderRequest carries the aggregate stats forwarded to the user service.
type ApproveOrderRequest struct {
	SellerID      string   `json:"sellerId" validate:"required"`
	BuyerID       string   `json:"buyerId" validate:"required"`
	OngoingJobs   int      `json:"ongoingJobs"`
	CompletedJobs int      `json:"completedJobs"`
	TotalEarnings float64  `json:"totalEarnings"`
	PurchasedGigs []string `json:"purchasedGigs"`
}

// ExtensionInput is both the seller's proposal and the buyer's fallback values
// on approval.
type ExtensionInput struct {
	OriginalDate string `json:"originalDate" validate:"required"`
	NewDate      string `json:"newDate" validate:"required"`
	Days         int    `json:"days" validate:"required,gte=1"`
	Reason       string `json:"reason" validate:"required"`
}

// DeliverOrderRequest is the seller's delivery. File is either a data URL or a
// base64 body; it is uploaded before the order is touched.
type DeliverOrderRequest struct {
	Message  string `json:"message" validate:"required"`
	File     string `json:"file"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize" validate:"gte=0"`
	FileName string `json:"fileName"`
}

type MarkAsReadRequest struct {
	NotificationID string `json:"notificationId" validate:"required,uuid"`
}
