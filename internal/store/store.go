package store

import (
	"context"
	"errors"

	"stripe-checkout/internal/models"
)

// ErrNotFound is returned when no order matches the given id.
var ErrNotFound = errors.New("order not found")

// ErrInvalidID is returned for ids the backing store cannot parse.
// Distinct from ErrNotFound so the HTTP layer can answer 400 instead of 404.
var ErrInvalidID = errors.New("invalid order id")

// OrderFilter narrows List results. Zero values mean "any".
type OrderFilter struct {
	Status models.PaymentStatus
	Email  string
}

// OrderUpdate is a partial update; nil fields are left untouched.
type OrderUpdate struct {
	PaymentStatus   *models.PaymentStatus
	TransactionID   *string
	StripeSessionID *string
}

func (u OrderUpdate) Empty() bool {
	return u.PaymentStatus == nil && u.TransactionID == nil && u.StripeSessionID == nil
}

// OrderStore persists orders. List returns newest-first by creation time.
// Single-document writes only; no transaction spans a read and a write.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, id string, upd OrderUpdate) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
}
