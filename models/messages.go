package models

import "time"

// Exchanges and routing keys used by downstream services.
const (
	SellerUpdatesExchange = "gigconnect-seller-updates"
	SellerRoutingKey      = "user-seller"
	BuyerUpdatesExchange  = "gigconnect-buyer-updates"
	BuyerRoutingKey       = "user-buyer"
	OrderEmailExchange    = "gigconnect-order-exchange"
	OrderEmailRoutingKey  = "order-email"
)

// Message types understood by the user service.
const (
	UpdateCreateOrder   = "create-order"
	UpdateCancelOrder   = "cancel-order"
	UpdateApproveOrder  = "approve-order"
	UpdatePurchasedGigs = "purchased-gigs"
)

// Email templates understood by the notification service.
const (
	TemplateOrderPlaced            = "orderPlaced"
	TemplateOrderDelivered         = "orderDelivered"
	TemplateOrderExtension         = "orderExtension"
	TemplateOrderExtensionApproval = "orderExtensionApproval"
)

// Review message types consumed from the review queue.
const (
	ReviewTypeBuyer  = "buyer-review"
	ReviewTypeSeller = "seller-review"
)

type SellerUpdate struct {
	Type           string     `json:"type"`
	SellerID       string     `json:"sellerId"`
	BuyerID        string     `json:"buyerId,omitempty"`
	OngoingJobs    int        `json:"ongoingJobs,omitempty"`
	CompletedJobs  int        `json:"completedJobs,omitempty"`
	TotalEarnings  float64    `json:"totalEarnings,omitempty"`
	RecentDelivery *time.Time `json:"recentDelivery,omitempty"`
}

type BuyerUpdate struct {
	Type          string   `json:"type"`
	BuyerID       string   `json:"buyerId"`
	PurchasedGigs []string `json:"purchasedGigs"`
}

// OrderEmail carries the fields every order email template may reference.
// Unused fields are omitted.
type OrderEmail struct {
	Template       string  `json:"template"`
	OrderID        string  `json:"orderId"`
	InvoiceID      string  `json:"invoiceId,omitempty"`
	ReceiverEmail  string  `json:"receiverEmail"`
	BuyerUsername  string  `json:"buyerUsername"`
	SellerUsername string  `json:"sellerUsername"`
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	Requirements   string  `json:"requirements,omitempty"`
	OrderDue       string  `json:"orderDue,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	ServiceFee     float64 `json:"serviceFee,omitempty"`
	Total          float64 `json:"total,omitempty"`
	OrderURL       string  `json:"orderUrl"`
	OriginalDate   string  `json:"originalDate,omitempty"`
	NewDate        string  `json:"newDate,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Subject        string  `json:"subject,omitempty"`
	Header         string  `json:"header,omitempty"`
	Type           string  `json:"type,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// ReviewMessage is published by the review service when a party rates an order.
type ReviewMessage struct {
	GigID         string `json:"gigId"`
	ReviewerID    string `json:"reviewerId"`
	ReviewerImage string `json:"reviewerImage"`
	SellerID      string `json:"sellerId"`
	Review        string `json:"review"`
	Rating        int    `json:"rating"`
	OrderID       string `json:"orderId"`
	CreatedAt     string `json:"createdAt"`
	Type          string `json:"type"`
}
