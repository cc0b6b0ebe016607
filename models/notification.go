package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message shown to one party of an order.
type Notification struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"_id"`
	UserTo           string    `gorm:"type:varchar(128);not null;index" json:"userTo"`
	SenderUsername   string    `gorm:"type:varchar(128)" json:"senderUsername"`
	SenderPicture    string    `gorm:"type:text" json:"senderPicture"`
	ReceiverUsername string    `gorm:"type:varchar(128)" json:"receiverUsername"`
	ReceiverPicture  string    `gorm:"type:text" json:"receiverPicture"`
	IsRead           bool      `gorm:"not null" json:"isRead"`
	Message          string    `gorm:"type:text;not null" json:"message"`
	OrderID          string    `gorm:"type:varchar(128);index" json:"orderId"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Notification) TableName() string { return "order_notifications" }

type NotificationFilter struct {
	UserTo   string
	Page     int
	PageSize int
}

// LiveNotification is the payload pushed to connected clients as an
// "order notification" event.
type LiveNotification struct {
	Order        *Order        `json:"order"`
	Notification *Notification `json:"notification"`
}
