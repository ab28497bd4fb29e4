// Package stripe wraps the hosted-payment provider behind a small gateway
// interface so the reconciliation logic can be driven by a fake in tests.
package stripe

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignature is returned when a webhook payload does not match its
// signature header under the provider's signing scheme.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutItem is one line of a hosted checkout session.
type CheckoutItem struct {
	Name        string
	Description string
	Images      []string
	Price       float64
	Quantity    int64
}

// CheckoutSession is the provider-side hosted payment flow.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent,omitempty"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// PaymentStatusPaid is the session payment_status value for a settled session.
const PaymentStatusPaid = "paid"

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// Event is a verified webhook notification. Data is the raw provider object
// inside the event envelope.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// MetadataOrderID is the metadata key carrying the order id through
// sessions, intents and the events they produce.
const MetadataOrderID = "orderId"

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, items []CheckoutItem, customerEmail, successURL, cancelURL string, metadata map[string]string) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// ConstructWebhookEvent verifies signature over the raw, unparsed body.
	ConstructWebhookEvent(payload []byte, sigHeader, secret string) (*Event, error)
}

var cents = decimal.NewFromInt(100)

// MinorUnits converts a dollar amount to integer cents, rounding half away
// from zero. Conversion happens once, at the provider boundary.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(cents).Round(0).IntPart()
}
