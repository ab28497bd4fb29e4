package store

import (
	"context"
	"testing"
	"time"

	"stripe-checkout/internal/models"
)

func newOrder(email string, total float64) *models.Order {
	return &models.Order{
		CustomerEmail: email,
		Items:         []models.OrderItem{{Name: "Widget", Price: total, Quantity: 1}},
		TotalAmount:   total,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	o := newOrder("a@b.com", 10)
	if err := m.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if o.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", o.PaymentStatus)
	}
	if o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	got, err := m.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerEmail != "a@b.com" {
		t.Fatalf("unexpected email %q", got.CustomerEmail)
	}

	if _, err := m.GetByID(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	o := newOrder("a@b.com", 10)
	if err := m.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	status := models.PaymentStatusSuccess
	txn := "pi_123"
	updated, err := m.Update(ctx, o.ID, OrderUpdate{PaymentStatus: &status, TransactionID: &txn})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PaymentStatus != models.PaymentStatusSuccess || updated.TransactionID != "pi_123" {
		t.Fatalf("update not applied: %+v", updated)
	}
	// untouched fields survive a partial update
	if updated.CustomerEmail != "a@b.com" || updated.TotalAmount != 10 {
		t.Fatalf("partial update clobbered fields: %+v", updated)
	}

	if _, err := m.Update(ctx, "missing", OrderUpdate{PaymentStatus: &status}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	first := newOrder("a@b.com", 10)
	if err := m.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second := newOrder("a@b.com", 20)
	if err := m.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	other := newOrder("c@d.com", 30)
	if err := m.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	status := models.PaymentStatusSuccess
	if _, err := m.Update(ctx, second.ID, OrderUpdate{PaymentStatus: &status}); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := m.List(ctx, OrderFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}
	if all[0].ID != other.ID || all[2].ID != first.ID {
		t.Fatalf("expected newest-first ordering")
	}

	filtered, err := m.List(ctx, OrderFilter{Status: models.PaymentStatusSuccess, Email: "a@b.com"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != second.ID {
		t.Fatalf("filter did not match exactly the success order: %+v", filtered)
	}

	none, err := m.List(ctx, OrderFilter{Status: models.PaymentStatusSuccess, Email: "c@d.com"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}
