package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stripe-checkout/internal/events"
	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/order"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
	"stripe-checkout/internal/telemetry"
)

type UseCase struct {
	store       store.OrderStore
	gateway     stripe.Gateway
	events      events.Publisher
	metrics     *telemetry.Metrics
	log         *zap.Logger
	tracer      trace.Tracer
	frontendURL string
}

func NewUseCase(st store.OrderStore, gw stripe.Gateway, ev events.Publisher, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer, frontendURL string) *UseCase {
	return &UseCase{
		store:       st,
		gateway:     gw,
		events:      ev,
		metrics:     metrics,
		log:         log,
		tracer:      tracer,
		frontendURL: frontendURL,
	}
}

// CheckoutResult is the response payload for a started hosted checkout.
type CheckoutResult struct {
	SessionID string
	URL       string
	OrderID   string
}

// CreateCheckoutSession starts a hosted checkout. With an orderID it reuses
// that order; without one it creates a pending order first. The order id
// rides along in session metadata so webhooks can find their way back.
func (uc *UseCase) CreateCheckoutSession(ctx context.Context, items []models.OrderItem, customerEmail, orderID string) (*CheckoutResult, error) {
	ctx, span := uc.tracer.Start(ctx, "CreateCheckoutSession",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("checkout.items_count", len(items))),
	)
	defer span.End()

	if err := order.ValidateEmail(customerEmail); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := order.ValidateItems(items); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	totalAmount := total(items)

	var o *models.Order
	if orderID != "" {
		existing, err := uc.store.GetByID(ctx, orderID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		o = existing
	} else {
		o = &models.Order{
			CustomerEmail: customerEmail,
			Items:         items,
			TotalAmount:   totalAmount,
			PaymentStatus: models.PaymentStatusPending,
		}
		if err := uc.store.Create(ctx, o); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		uc.metrics.OrdersCreated.Add(ctx, 1)
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	successURL := fmt.Sprintf("%s/payment-success?session_id={CHECKOUT_SESSION_ID}", uc.frontendURL)
	cancelURL := fmt.Sprintf("%s/payment-failed?orderId=%s", uc.frontendURL, o.ID)

	sess, err := uc.gateway.CreateCheckoutSession(ctx, checkoutItems(items), customerEmail,
		successURL, cancelURL, map[string]string{stripe.MetadataOrderID: o.ID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.session_id", sess.ID))

	if _, err := uc.store.Update(ctx, o.ID, store.OrderUpdate{StripeSessionID: &sess.ID}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uc.metrics.CheckoutSessionsCreated.Add(ctx, 1)
	uc.metrics.OrderValueCents.Record(ctx, stripe.MinorUnits(totalAmount))
	uc.publish(ctx, models.PaymentEvent{
		Type:      models.EventCheckoutStarted,
		OrderID:   o.ID,
		SessionID: sess.ID,
		Status:    models.PaymentStatusPending,
		Source:    "api",
	})

	span.SetStatus(codes.Ok, "")
	uc.log.Info("checkout session created",
		zap.String("order_id", o.ID),
		zap.String("session_id", sess.ID),
		zap.Float64("total_amount", totalAmount),
	)
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL, OrderID: o.ID}, nil
}

func (uc *UseCase) CreatePaymentIntent(ctx context.Context, amount float64, currency, orderID string) (*stripe.PaymentIntent, error) {
	ctx, span := uc.tracer.Start(ctx, "CreatePaymentIntent",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Float64("intent.amount", amount)),
	)
	defer span.End()

	if amount <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, httperr.BadRequest("Amount is required")
	}
	if currency == "" {
		currency = "usd"
	}
	metadata := map[string]string{}
	if orderID != "" {
		metadata[stripe.MetadataOrderID] = orderID
	}

	pi, err := uc.gateway.CreatePaymentIntent(ctx, amount, currency, metadata)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uc.metrics.PaymentIntentsCreated.Add(ctx, 1)
	span.SetAttributes(attribute.String("intent.id", pi.ID))
	span.SetStatus(codes.Ok, "")
	uc.log.Info("payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.String("order_id", orderID),
	)
	return pi, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	ctx, span := uc.tracer.Start(ctx, "GetCheckoutSession",
		trace.WithAttributes(attribute.String("checkout.session_id", sessionID)),
	)
	defer span.End()

	sess, err := uc.gateway.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return sess, nil
}

// VerifyResult reports the outcome of a synchronous verification.
type VerifyResult struct {
	Paid    bool
	Status  string
	OrderID string
	Email   string
	Amount  int64
}

// Verify is driver A of reconciliation: the client calls back after the
// hosted checkout redirect. A paid session marks the metadata order as
// success; the order mutation is best-effort and a missing order does not
// fail verification.
func (uc *UseCase) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	ctx, span := uc.tracer.Start(ctx, "VerifyPayment",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("checkout.session_id", sessionID)),
	)
	defer span.End()

	sess, err := uc.gateway.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if sess.PaymentStatus != stripe.PaymentStatusPaid {
		uc.metrics.PaymentsVerified.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "unpaid")))
		span.SetAttributes(attribute.String("payment.status", sess.PaymentStatus))
		span.SetStatus(codes.Ok, "")
		return &VerifyResult{Paid: false, Status: sess.PaymentStatus}, nil
	}

	orderID := sess.Metadata[stripe.MetadataOrderID]
	if orderID != "" {
		status := models.PaymentStatusSuccess
		upd := store.OrderUpdate{PaymentStatus: &status, TransactionID: &sess.PaymentIntentID}
		if _, err := uc.store.Update(ctx, orderID, upd); err != nil {
			if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrInvalidID) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			uc.log.Warn("verified session references unknown order",
				zap.String("session_id", sessionID),
				zap.String("order_id", orderID),
			)
		} else {
			uc.publish(ctx, models.PaymentEvent{
				Type:      models.EventPaymentSuccess,
				OrderID:   orderID,
				SessionID: sessionID,
				Status:    models.PaymentStatusSuccess,
				Source:    "verify",
			})
		}
	}

	uc.metrics.PaymentsVerified.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "paid")))
	span.SetAttributes(attribute.String("order.id", orderID))
	span.SetStatus(codes.Ok, "")
	uc.log.Info("payment verified",
		zap.String("session_id", sessionID),
		zap.String("order_id", orderID),
	)
	return &VerifyResult{
		Paid:    true,
		Status:  stripe.PaymentStatusPaid,
		OrderID: orderID,
		Email:   sess.CustomerEmail,
		Amount:  sess.AmountTotal,
	}, nil
}

func (uc *UseCase) publish(ctx context.Context, evt models.PaymentEvent) {
	if err := uc.events.Publish(ctx, evt); err != nil {
		uc.log.Warn("failed to publish payment event",
			zap.String("event_type", evt.Type),
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
		return
	}
	uc.metrics.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("type", evt.Type)))
}

func total(items []models.OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(it.Quantity)))
	}
	f, _ := sum.Float64()
	return f
}

func checkoutItems(items []models.OrderItem) []stripe.CheckoutItem {
	out := make([]stripe.CheckoutItem, 0, len(items))
	for _, it := range items {
		out = append(out, stripe.CheckoutItem{
			Name:        it.Name,
			Description: it.Description,
			Images:      it.Images,
			Price:       it.Price,
			Quantity:    it.Quantity,
		})
	}
	return out
}
