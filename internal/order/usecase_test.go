package order

import (
	"context"
	"errors"
	"testing"

	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"stripe-checkout/internal/events"
	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/telemetry"
)

func setup(t *testing.T) (*store.MemoryStore, *UseCase) {
	t.Helper()
	st := store.NewMemoryStore()
	metrics, err := telemetry.NewMetrics(mnoop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	uc := NewUseCase(st, events.Nop{}, metrics, zap.NewNop(), tnoop.NewTracerProvider().Tracer("test"))
	return st, uc
}

func validItems() []models.OrderItem {
	return []models.OrderItem{
		{Name: "Widget", Price: 19.99, Quantity: 2},
		{Name: "Gadget", Price: 5.00, Quantity: 1},
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	st, uc := setup(t)

	o, err := uc.Create(ctx, "a@b.com", validItems(), 44.98)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == "" {
		t.Fatalf("expected id")
	}
	if o.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", o.PaymentStatus)
	}

	stored, err := st.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TotalAmount != 44.98 {
		t.Fatalf("unexpected total %v", stored.TotalAmount)
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t)

	cases := []struct {
		name  string
		email string
		items []models.OrderItem
		total float64
	}{
		{"missing email", "", validItems(), 10},
		{"bad email", "not-an-email", validItems(), 10},
		{"empty items", "a@b.com", []models.OrderItem{}, 10},
		{"item without name", "a@b.com", []models.OrderItem{{Price: 1, Quantity: 1}}, 10},
		{"zero price", "a@b.com", []models.OrderItem{{Name: "x", Price: 0, Quantity: 1}}, 10},
		{"negative price", "a@b.com", []models.OrderItem{{Name: "x", Price: -1, Quantity: 1}}, 10},
		{"zero quantity", "a@b.com", []models.OrderItem{{Name: "x", Price: 1, Quantity: 0}}, 10},
		{"zero total", "a@b.com", validItems(), 0},
		{"negative total", "a@b.com", validItems(), -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, tc.email, tc.items, tc.total)
			var apiErr *httperr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected httperr.Error, got %v", err)
			}
			if apiErr.Status != 400 {
				t.Fatalf("expected status 400, got %d", apiErr.Status)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t)

	o, err := uc.Create(ctx, "a@b.com", validItems(), 44.98)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := models.PaymentStatusSuccess
	txn := "pi_42"
	updated, err := uc.UpdateStatus(ctx, o.ID, store.OrderUpdate{PaymentStatus: &status, TransactionID: &txn})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PaymentStatus != models.PaymentStatusSuccess || updated.TransactionID != "pi_42" {
		t.Fatalf("update not applied: %+v", updated)
	}

	bad := models.PaymentStatus("refunded")
	if _, err := uc.UpdateStatus(ctx, o.ID, store.OrderUpdate{PaymentStatus: &bad}); err == nil {
		t.Fatalf("expected error for invalid status")
	}

	if _, err := uc.UpdateStatus(ctx, "missing", store.OrderUpdate{PaymentStatus: &status}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_Filtered(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t)

	a, err := uc.Create(ctx, "a@b.com", validItems(), 44.98)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.Create(ctx, "c@d.com", validItems(), 44.98); err != nil {
		t.Fatalf("create: %v", err)
	}

	status := models.PaymentStatusSuccess
	if _, err := uc.UpdateStatus(ctx, a.ID, store.OrderUpdate{PaymentStatus: &status}); err != nil {
		t.Fatalf("update: %v", err)
	}

	orders, err := uc.List(ctx, store.OrderFilter{Status: models.PaymentStatusSuccess, Email: "a@b.com"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != a.ID {
		t.Fatalf("unexpected list result: %+v", orders)
	}

	if _, err := uc.List(ctx, store.OrderFilter{Status: "bogus"}); err == nil {
		t.Fatalf("expected error for invalid status filter")
	}
}
