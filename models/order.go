package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Offer is the snapshot of the accepted offer the order was placed against.
type Offer struct {
	GigTitle        string  `bson:"gigTitle" json:"gigTitle"`
	Price           float64 `bson:"price" json:"price"`
	Description     string  `bson:"description" json:"description"`
	DeliveryInDays  int     `bson:"deliveryInDays" json:"deliveryInDays"`
	OldDeliveryDate string  `bson:"oldDeliveryDate" json:"oldDeliveryDate"`
	NewDeliveryDate string  `bson:"newDeliveryDate" json:"newDeliveryDate"`
	Accepted        bool    `bson:"accepted" json:"accepted"`
	Cancelled       bool    `bson:"cancelled" json:"cancelled"`
	Reason          string  `bson:"reason,omitempty" json:"reason,omitempty"`
}

// PaymentDetails is the gateway record written once payment is verified.
type PaymentDetails struct {
	TxRef         string  `bson:"txRef" json:"txRef"`
	TransactionID string  `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	GatewayStatus string  `bson:"gatewayStatus,omitempty" json:"gatewayStatus,omitempty"`
	PaymentMethod string  `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Fee           float64 `bson:"fee,omitempty" json:"fee,omitempty"`
}

// ExtensionRequest is a pending delivery date change. The zero value is the
// "no pending request" sentinel and is persisted as such.
type ExtensionRequest struct {
	OriginalDate string `bson:"originalDate" json:"originalDate"`
	NewDate      string `bson:"newDate" json:"newDate"`
	Days         int    `bson:"days" json:"days"`
	Reason       string `bson:"reason" json:"reason"`
}

// IsEmpty reports whether no request is pending.
func (e ExtensionRequest) IsEmpty() bool {
	return e == ExtensionRequest{}
}

// DeliveredWork is one delivery artifact. Orders keep every delivery.
type DeliveredWork struct {
	Message  string `bson:"message" json:"message"`
	File     string `bson:"file" json:"file"`
	FileType string `bson:"fileType" json:"fileType"`
	FileSize int64  `bson:"fileSize" json:"fileSize"`
	FileName string `bson:"fileName" json:"fileName"`
}

// OrderEvents records when each milestone happened.
type OrderEvents struct {
	PlaceOrder         *time.Time `bson:"placeOrder,omitempty" json:"placeOrder,omitempty"`
	Requirements       *time.Time `bson:"requirements,omitempty" json:"requirements,omitempty"`
	OrderStarted       *time.Time `bson:"orderStarted,omitempty" json:"orderStarted,omitempty"`
	DeliveryDateUpdate *time.Time `bson:"deliveryDateUpdate,omitempty" json:"deliveryDateUpdate,omitempty"`
	OrderDelivered     *time.Time `bson:"orderDelivered,omitempty" json:"orderDelivered,omitempty"`
	BuyerReview        *time.Time `bson:"buyerReview,omitempty" json:"buyerReview,omitempty"`
	SellerReview       *time.Time `bson:"sellerReview,omitempty" json:"sellerReview,omitempty"`
}

// Review is a rating left by one party about the other.
type Review struct {
	Rating  int        `bson:"rating" json:"rating"`
	Review  string     `bson:"review" json:"review"`
	Created *time.Time `bson:"created,omitempty" json:"created,omitempty"`
}

// Order is the aggregate persisted in the orders collection. Party and offer
// fields are snapshots taken when the order is placed.
type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	OrderID   string             `bson:"orderId" json:"orderId"`
	InvoiceID string             `bson:"invoiceId" json:"invoiceId"`
	Offer     Offer              `bson:"offer" json:"offer"`

	GigID               string `bson:"gigId" json:"gigId"`
	GigCoverImage       string `bson:"gigCoverImage" json:"gigCoverImage"`
	GigMainTitle        string `bson:"gigMainTitle" json:"gigMainTitle"`
	GigBasicTitle       string `bson:"gigBasicTitle" json:"gigBasicTitle"`
	GigBasicDescription string `bson:"gigBasicDescription" json:"gigBasicDescription"`

	SellerID       string `bson:"sellerId" json:"sellerId"`
	SellerUsername string `bson:"sellerUsername" json:"sellerUsername"`
	SellerImage    string `bson:"sellerImage" json:"sellerImage"`
	SellerEmail    string `bson:"sellerEmail" json:"sellerEmail"`
	BuyerID        string `bson:"buyerId" json:"buyerId"`
	BuyerUsername  string `bson:"buyerUsername" json:"buyerUsername"`
	BuyerImage     string `bson:"buyerImage" json:"buyerImage"`
	BuyerEmail     string `bson:"buyerEmail" json:"buyerEmail"`

	Status       OrderStatus `bson:"status" json:"status"`
	Quantity     int         `bson:"quantity" json:"quantity"`
	Price        float64     `bson:"price" json:"price"`
	ServiceFee   float64     `bson:"serviceFee" json:"serviceFee"`
	Requirements string      `bson:"requirements" json:"requirements"`

	Approved   bool       `bson:"approved" json:"approved"`
	Cancelled  bool       `bson:"cancelled" json:"cancelled"`
	Delivered  bool       `bson:"delivered" json:"delivered"`
	ApprovedAt *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`

	PaymentIntent    string           `bson:"paymentIntent,omitempty" json:"paymentIntent,omitempty"`
	Payment          PaymentDetails   `bson:"flutterwave" json:"flutterwave"`
	RequestExtension ExtensionRequest `bson:"requestExtension" json:"requestExtension"`
	DeliveredWork    []DeliveredWork  `bson:"deliveredWork" json:"deliveredWork"`
	Events           OrderEvents      `bson:"events" json:"events"`
	BuyerReview      *Review          `bson:"buyerReview,omitempty" json:"buyerReview,omitempty"`
	SellerReview     *Review          `bson:"sellerReview,omitempty" json:"sellerReview,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ExpectedTotal is the amount the gateway must report for this order,
// rounded to cents.
func (o *Order) ExpectedTotal() float64 {
	return float64(MinorUnits(o.Price+o.ServiceFee)) / 100
}

// PaidInFull reports whether amount covers the expected total to the cent.
func (o *Order) PaidInFull(amount float64) bool {
	return MinorUnits(amount) == MinorUnits(o.Price+o.ServiceFee)
}

// MinorUnits converts a currency amount to whole cents.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
