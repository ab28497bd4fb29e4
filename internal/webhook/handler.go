// Package webhook is driver B of payment reconciliation: signed events
// pushed by Stripe, possibly duplicated or out of order. Signature
// verification fails closed; after it passes, every per-event mutation
// failure is logged and dropped so the provider never retries forever.
package webhook

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stripe-checkout/internal/events"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
	"stripe-checkout/internal/telemetry"
)

const signatureHeader = "Stripe-Signature"

// Stripe event types this handler reconciles.
const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
	eventIntentSucceeded   = "payment_intent.succeeded"
	eventIntentFailed      = "payment_intent.payment_failed"
)

type Handler struct {
	store   store.OrderStore
	gateway stripe.Gateway
	events  events.Publisher
	metrics *telemetry.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
	secret  string
}

func NewHandler(st store.OrderStore, gw stripe.Gateway, ev events.Publisher, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer, secret string) *Handler {
	return &Handler{
		store:   st,
		gateway: gw,
		events:  ev,
		metrics: metrics,
		log:     log,
		tracer:  tracer,
		secret:  secret,
	}
}

func (h *Handler) Register(api fiber.Router) {
	api.Post("/webhooks/stripe", h.HandleStripe)
}

// HandleStripe verifies the signature over the exact raw body bytes and
// dispatches on event type. Once the signature checks out the response is
// always 200, whatever happens to the order mutation.
func (h *Handler) HandleStripe(c *fiber.Ctx) error {
	ctx, span := h.tracer.Start(c.UserContext(), "Webhook.HandleStripe",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if h.secret == "" {
		span.SetStatus(codes.Error, "webhook secret not configured")
		h.log.Error("STRIPE_WEBHOOK_SECRET is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook secret not configured"})
	}

	evt, err := h.gateway.ConstructWebhookEvent(c.Body(), c.Get(signatureHeader), h.secret)
	if err != nil {
		span.SetStatus(codes.Error, "signature verification failed")
		h.metrics.WebhookEvents.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "invalid_signature"),
		))
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	span.SetAttributes(
		attribute.String("webhook.event_id", evt.ID),
		attribute.String("webhook.event_type", evt.Type),
	)
	h.process(ctx, evt)

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{"received": true})
}

// sessionPayload and intentPayload carry the event fields reconciliation
// needs; webhook event objects reference the payment intent by id string.
type sessionPayload struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type intentPayload struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) process(ctx context.Context, evt *stripe.Event) {
	outcome := "processed"
	switch evt.Type {
	case eventCheckoutCompleted:
		h.checkoutCompleted(ctx, evt.Data)
	case eventIntentSucceeded:
		h.intentFinished(ctx, evt.Data, models.PaymentStatusSuccess)
	case eventIntentFailed:
		h.intentFinished(ctx, evt.Data, models.PaymentStatusFailed)
	case eventCheckoutExpired:
		h.checkoutExpired(ctx, evt.Data)
	default:
		outcome = "ignored"
		h.log.Info("unhandled webhook event type", zap.String("type", evt.Type))
	}
	h.metrics.WebhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", evt.Type),
		attribute.String("outcome", outcome),
	))
}

// checkoutCompleted marks the order paid. Overwrites unconditionally,
// even when the order already reached a terminal state.
func (h *Handler) checkoutCompleted(ctx context.Context, data json.RawMessage) {
	var sess sessionPayload
	if err := json.Unmarshal(data, &sess); err != nil {
		h.dropped(ctx, eventCheckoutCompleted, "", err)
		return
	}
	orderID := sess.Metadata[stripe.MetadataOrderID]
	if orderID == "" {
		h.log.Info("checkout session completed without order metadata",
			zap.String("session_id", sess.ID))
		return
	}

	status := models.PaymentStatusSuccess
	upd := store.OrderUpdate{
		PaymentStatus:   &status,
		TransactionID:   &sess.PaymentIntent,
		StripeSessionID: &sess.ID,
	}
	if _, err := h.store.Update(ctx, orderID, upd); err != nil {
		h.dropped(ctx, eventCheckoutCompleted, orderID, err)
		return
	}

	h.publish(ctx, models.PaymentEvent{
		Type:      models.EventPaymentSuccess,
		OrderID:   orderID,
		SessionID: sess.ID,
		Status:    status,
		Source:    "webhook",
	})
	h.log.Info("order marked as paid",
		zap.String("order_id", orderID),
		zap.String("session_id", sess.ID),
	)
}

// intentFinished handles payment_intent.succeeded and payment_failed.
// Both overwrite unconditionally.
func (h *Handler) intentFinished(ctx context.Context, data json.RawMessage, status models.PaymentStatus) {
	eventType := eventIntentSucceeded
	if status == models.PaymentStatusFailed {
		eventType = eventIntentFailed
	}

	var pi intentPayload
	if err := json.Unmarshal(data, &pi); err != nil {
		h.dropped(ctx, eventType, "", err)
		return
	}
	orderID := pi.Metadata[stripe.MetadataOrderID]
	if orderID == "" {
		h.log.Info("payment intent event without order metadata",
			zap.String("payment_intent_id", pi.ID),
			zap.String("type", eventType),
		)
		return
	}

	upd := store.OrderUpdate{PaymentStatus: &status, TransactionID: &pi.ID}
	if _, err := h.store.Update(ctx, orderID, upd); err != nil {
		h.dropped(ctx, eventType, orderID, err)
		return
	}

	auditType := models.EventPaymentSuccess
	if status == models.PaymentStatusFailed {
		auditType = models.EventPaymentFailed
	}
	h.publish(ctx, models.PaymentEvent{
		Type:    auditType,
		OrderID: orderID,
		Status:  status,
		Source:  "webhook",
	})
	h.log.Info("payment intent reconciled",
		zap.String("order_id", orderID),
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(status)),
	)
}

// checkoutExpired fails the order only while it is still pending: the one
// guarded transition, so a late expiration never clobbers a completed
// payment and redelivery is idempotent.
func (h *Handler) checkoutExpired(ctx context.Context, data json.RawMessage) {
	var sess sessionPayload
	if err := json.Unmarshal(data, &sess); err != nil {
		h.dropped(ctx, eventCheckoutExpired, "", err)
		return
	}
	orderID := sess.Metadata[stripe.MetadataOrderID]
	if orderID == "" {
		return
	}

	o, err := h.store.GetByID(ctx, orderID)
	if err != nil {
		h.dropped(ctx, eventCheckoutExpired, orderID, err)
		return
	}
	if o.PaymentStatus != models.PaymentStatusPending {
		return
	}

	status := models.PaymentStatusFailed
	if _, err := h.store.Update(ctx, orderID, store.OrderUpdate{PaymentStatus: &status}); err != nil {
		h.dropped(ctx, eventCheckoutExpired, orderID, err)
		return
	}

	h.publish(ctx, models.PaymentEvent{
		Type:      models.EventPaymentFailed,
		OrderID:   orderID,
		SessionID: sess.ID,
		Status:    status,
		Source:    "webhook",
	})
	h.log.Info("order marked as failed after session expiration",
		zap.String("order_id", orderID),
		zap.String("session_id", sess.ID),
	)
}

// dropped records a reconciliation the webhook swallowed: logged, counted
// and published to the audit topic, never surfaced to the provider.
func (h *Handler) dropped(ctx context.Context, eventType, orderID string, err error) {
	h.metrics.ReconcileFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType),
	))
	h.log.Error("webhook mutation dropped",
		zap.String("event_type", eventType),
		zap.String("order_id", orderID),
		zap.Error(err),
	)
	h.publish(ctx, models.PaymentEvent{
		Type:    models.EventReconcileError,
		OrderID: orderID,
		Source:  "webhook:" + eventType,
		Error:   err.Error(),
	})
}

func (h *Handler) publish(ctx context.Context, evt models.PaymentEvent) {
	if err := h.events.Publish(ctx, evt); err != nil {
		h.log.Warn("failed to publish payment event",
			zap.String("event_type", evt.Type),
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
		return
	}
	h.metrics.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("type", evt.Type)))
}
