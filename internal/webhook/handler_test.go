package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
	"stripe-checkout/internal/telemetry"
)

const validSignature = "t=1,v1=valid"

// fakeGateway accepts exactly one signature header value and otherwise
// behaves like the provider: the event is decoded from the raw payload.
type fakeGateway struct{}

func (fakeGateway) CreateCheckoutSession(context.Context, []stripe.CheckoutItem, string, string, string, map[string]string) (*stripe.CheckoutSession, error) {
	return nil, fmt.Errorf("not implemented")
}

func (fakeGateway) CreatePaymentIntent(context.Context, float64, string, map[string]string) (*stripe.PaymentIntent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (fakeGateway) RetrieveCheckoutSession(context.Context, string) (*stripe.CheckoutSession, error) {
	return nil, fmt.Errorf("not implemented")
}

func (fakeGateway) ConstructWebhookEvent(payload []byte, sigHeader, secret string) (*stripe.Event, error) {
	if sigHeader != validSignature {
		return nil, stripe.ErrInvalidSignature
	}
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, stripe.ErrInvalidSignature
	}
	return &stripe.Event{ID: envelope.ID, Type: envelope.Type, Data: envelope.Data.Object}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.PaymentEvent
}

func (r *recordingSink) Publish(ctx context.Context, evt models.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingSink) has(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func newApp(t *testing.T, st store.OrderStore, secret string) (*fiber.App, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	metrics, err := telemetry.NewMetrics(mnoop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	h := NewHandler(st, fakeGateway{}, sink, metrics, zap.NewNop(), tnoop.NewTracerProvider().Tracer("test"), secret)
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(zap.NewNop(), false)})
	h.Register(app.Group("/api"))
	return app, sink
}

func seedOrder(t *testing.T, st store.OrderStore) *models.Order {
	t.Helper()
	o := &models.Order{
		CustomerEmail: "a@b.com",
		Items:         []models.OrderItem{{Name: "Widget", Price: 10, Quantity: 1}},
		TotalAmount:   10,
	}
	if err := st.Create(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func sessionEvent(typ, sessionID, paymentIntent, orderID string) []byte {
	meta := map[string]string{}
	if orderID != "" {
		meta["orderId"] = orderID
	}
	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_" + typ,
		"type": typ,
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_intent": paymentIntent,
				"metadata":       meta,
			},
		},
	})
	return payload
}

func intentEvent(typ, intentID, orderID string) []byte {
	meta := map[string]string{}
	if orderID != "" {
		meta["orderId"] = orderID
	}
	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_" + typ,
		"type": typ,
		"data": map[string]any{
			"object": map[string]any{
				"id":       intentID,
				"metadata": meta,
			},
		},
	})
	return payload
}

func deliver(t *testing.T, app *fiber.App, payload []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("deliver webhook: %v", err)
	}
	return resp
}

func orderStatus(t *testing.T, st store.OrderStore, id string) models.PaymentStatus {
	t.Helper()
	o, err := st.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return o.PaymentStatus
}

func TestWebhook_InvalidSignature(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	resp := deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", o.ID), "t=1,v1=bogus")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusPending {
		t.Fatalf("invalid signature must not mutate order, got %s", got)
	}
}

func TestWebhook_UnconfiguredSecret(t *testing.T) {
	st := store.NewMemoryStore()
	app, _ := newApp(t, st, "")

	resp := deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", "x"), validSignature)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestWebhook_CheckoutCompleted(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, sink := newApp(t, st, "whsec")

	resp := deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", o.ID), validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"received":true`)) {
		t.Fatalf("expected receipt acknowledgment, got %s", body)
	}

	got, err := st.GetByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.PaymentStatus != models.PaymentStatusSuccess {
		t.Fatalf("expected success, got %s", got.PaymentStatus)
	}
	if got.TransactionID != "pi_1" || got.StripeSessionID != "cs_1" {
		t.Fatalf("transaction/session ids not recorded: %+v", got)
	}
	if !sink.has(models.EventPaymentSuccess) {
		t.Fatalf("expected payment.success audit event")
	}
}

func TestWebhook_PaymentFailed(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	resp := deliver(t, app, intentEvent("payment_intent.payment_failed", "pi_1", o.ID), validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestWebhook_ExpiredGuardsTerminalState(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	// paid first
	deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", o.ID), validSignature)

	// two late expirations must not clobber success
	expired := sessionEvent("checkout.session.expired", "cs_1", "", o.ID)
	deliver(t, app, expired, validSignature)
	deliver(t, app, expired, validSignature)
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusSuccess {
		t.Fatalf("expired must not overwrite success, got %s", got)
	}
}

func TestWebhook_ExpiredFailsPendingIdempotently(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	expired := sessionEvent("checkout.session.expired", "cs_1", "", o.ID)
	resp := deliver(t, app, expired, validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}

	// redelivery is a no-op but still acknowledged
	resp = deliver(t, app, expired, validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", resp.StatusCode)
	}
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusFailed {
		t.Fatalf("expected failed after redelivery, got %s", got)
	}
}

func TestWebhook_SucceededOverwritesFailed(t *testing.T) {
	// The unconditional branches intentionally overwrite terminal states:
	// a late payment_intent.succeeded flips an expired order back to success.
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	deliver(t, app, sessionEvent("checkout.session.expired", "cs_1", "", o.ID), validSignature)
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}

	deliver(t, app, intentEvent("payment_intent.succeeded", "pi_1", o.ID), validSignature)
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusSuccess {
		t.Fatalf("expected success after late succeeded event, got %s", got)
	}
}

func TestWebhook_UnknownTypeAcknowledged(t *testing.T) {
	st := store.NewMemoryStore()
	o := seedOrder(t, st)
	app, _ := newApp(t, st, "whsec")

	resp := deliver(t, app, intentEvent("charge.refunded", "ch_1", o.ID), validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unhandled type, got %d", resp.StatusCode)
	}
	if got := orderStatus(t, st, o.ID); got != models.PaymentStatusPending {
		t.Fatalf("unhandled type must not mutate order, got %s", got)
	}
}

func TestWebhook_MissingOrderStillAcknowledged(t *testing.T) {
	st := store.NewMemoryStore()
	app, sink := newApp(t, st, "whsec")

	resp := deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", "gone"), validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mutation failure must not change the response, got %d", resp.StatusCode)
	}
	if !sink.has(models.EventReconcileError) {
		t.Fatalf("expected reconcile.error audit event for dropped mutation")
	}
}

func TestWebhook_NoOrderMetadata(t *testing.T) {
	st := store.NewMemoryStore()
	app, sink := newApp(t, st, "whsec")

	resp := deliver(t, app, sessionEvent("checkout.session.completed", "cs_1", "pi_1", ""), validSignature)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sink.has(models.EventReconcileError) {
		t.Fatalf("missing metadata is a skip, not a failure")
	}
}
