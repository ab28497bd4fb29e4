package order

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stripe-checkout/internal/events"
	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
	"stripe-checkout/internal/telemetry"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UseCase struct {
	store   store.OrderStore
	events  events.Publisher
	metrics *telemetry.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewUseCase(st store.OrderStore, ev events.Publisher, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer) *UseCase {
	return &UseCase{store: st, events: ev, metrics: metrics, log: log, tracer: tracer}
}

// ValidateItems checks every line item the way the original validation
// middleware does, naming the offending index.
func ValidateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return httperr.BadRequest("Items array cannot be empty")
	}
	for i, it := range items {
		if it.Name == "" {
			return httperr.BadRequest(fmt.Sprintf("Item at index %d is missing 'name' field", i))
		}
		if it.Price <= 0 {
			return httperr.BadRequest(fmt.Sprintf("Item at index %d has invalid price. Price must be a positive number", i))
		}
		if it.Quantity <= 0 {
			return httperr.BadRequest(fmt.Sprintf("Item at index %d has invalid quantity. Quantity must be a positive number", i))
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return httperr.BadRequest("Customer email is required")
	}
	if !emailRe.MatchString(email) {
		return httperr.BadRequest("Invalid email format")
	}
	return nil
}

func (uc *UseCase) Create(ctx context.Context, customerEmail string, items []models.OrderItem, totalAmount float64) (*models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "CreateOrder",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Float64("order.total_amount", totalAmount),
			attribute.Int("order.items_count", len(items)),
		),
	)
	defer span.End()

	if err := ValidateEmail(customerEmail); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := ValidateItems(items); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if totalAmount <= 0 {
		span.SetStatus(codes.Error, "invalid total amount")
		return nil, httperr.BadRequest("Total amount must be a positive number")
	}

	o := &models.Order{
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
	span.SetAttributes(attribute.String("order.id", o.ID))

	uc.metrics.OrdersCreated.Add(ctx, 1)
	uc.metrics.OrderValueCents.Record(ctx, stripe.MinorUnits(totalAmount))
	uc.publish(ctx, models.PaymentEvent{
		Type:    models.EventOrderCreated,
		OrderID: o.ID,
		Status:  o.PaymentStatus,
		Source:  "api",
	})

	span.SetStatus(codes.Ok, "")
	uc.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_email", customerEmail),
		zap.Float64("total_amount", totalAmount),
	)
	return o, nil
}

func (uc *UseCase) Get(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "GetOrder",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	o, err := uc.store.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return o, nil
}

// UpdateStatus applies a partial update of payment fields. The state machine
// is not enforced here; only the webhook's expiration branch guards a
// transition.
func (uc *UseCase) UpdateStatus(ctx context.Context, id string, upd store.OrderUpdate) (*models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "UpdateOrderStatus",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		span.SetStatus(codes.Error, "invalid payment status")
		return nil, httperr.BadRequest("paymentStatus must be one of pending, success, failed")
	}

	o, err := uc.store.Update(ctx, id, upd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	uc.log.Info("order updated",
		zap.String("order_id", o.ID),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}

func (uc *UseCase) List(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "ListOrders",
		trace.WithAttributes(
			attribute.String("filter.status", string(f.Status)),
			attribute.String("filter.email", f.Email),
		),
	)
	defer span.End()

	if f.Status != "" && !f.Status.Valid() {
		span.SetStatus(codes.Error, "invalid status filter")
		return nil, httperr.BadRequest("status must be one of pending, success, failed")
	}

	orders, err := uc.store.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	span.SetStatus(codes.Ok, "")
	return orders, nil
}

// publish is fire-and-forget: audit events never fail the request.
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
