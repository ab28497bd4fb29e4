package models

import "time"

// Payment event types published to the payment-events audit topic.
const (
	EventOrderCreated    = "order.created"
	EventCheckoutStarted = "checkout.started"
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventReconcileError  = "reconcile.error"
)

// PaymentEvent is the envelope written to Kafka for every order creation
// and reconciliation outcome, including swallowed webhook failures.
type PaymentEvent struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	OrderID   string        `json:"order_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Status    PaymentStatus `json:"status,omitempty"`
	Source    string        `json:"source,omitempty"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}
