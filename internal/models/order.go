package models

import "time"

// PaymentStatus is the payment lifecycle state of an order.
// Orders start pending; success and failed are set by reconciliation.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}

type OrderItem struct {
	Name        string   `bson:"name" json:"name"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Images      []string `bson:"images,omitempty" json:"images,omitempty"`
	Price       float64  `bson:"price" json:"price"`
	Quantity    int64    `bson:"quantity" json:"quantity"`
}

// Order is the persisted record of a purchase attempt.
// StripeSessionID keeps its historical wire name stripePaymentIntentId:
// it holds the checkout session id, not a payment intent id.
type Order struct {
	ID              string        `bson:"-" json:"id"`
	CustomerEmail   string        `bson:"customerEmail" json:"customerEmail"`
	Items           []OrderItem   `bson:"items" json:"items"`
	TotalAmount     float64       `bson:"totalAmount" json:"totalAmount"`
	PaymentStatus   PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	TransactionID   string        `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	StripeSessionID string        `bson:"stripePaymentIntentId,omitempty" json:"stripePaymentIntentId,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}
