package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	OrdersCreated           metric.Int64Counter
	CheckoutSessionsCreated metric.Int64Counter
	PaymentIntentsCreated   metric.Int64Counter
	PaymentsVerified        metric.Int64Counter
	WebhookEvents           metric.Int64Counter
	ReconcileFailures       metric.Int64Counter
	OrderValueCents         metric.Int64Histogram
	EventsPublished         metric.Int64Counter
	EventsConsumed          metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Total orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	sessionsCreated, err := meter.Int64Counter("checkout_sessions_created_total",
		metric.WithDescription("Total hosted checkout sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	intentsCreated, err := meter.Int64Counter("payment_intents_created_total",
		metric.WithDescription("Total payment intents created"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return nil, err
	}

	paymentsVerified, err := meter.Int64Counter("payments_verified_total",
		metric.WithDescription("Total synchronous payment verifications, by outcome"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, err
	}

	webhookEvents, err := meter.Int64Counter("webhook_events_total",
		metric.WithDescription("Total webhook deliveries, by event type and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	reconcileFailures, err := meter.Int64Counter("reconcile_failures_total",
		metric.WithDescription("Order mutations dropped after webhook acknowledgment"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	orderValue, err := meter.Int64Histogram("order_value_cents",
		metric.WithDescription("Order value in cents"),
		metric.WithUnit("cents"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000),
	)
	if err != nil {
		return nil, err
	}

	published, err := meter.Int64Counter("events_published_total",
		metric.WithDescription("Total payment events published to Kafka"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	consumed, err := meter.Int64Counter("events_consumed_total",
		metric.WithDescription("Total payment events consumed from Kafka"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OrdersCreated:           ordersCreated,
		CheckoutSessionsCreated: sessionsCreated,
		PaymentIntentsCreated:   intentsCreated,
		PaymentsVerified:        paymentsVerified,
		WebhookEvents:           webhookEvents,
		ReconcileFailures:       reconcileFailures,
		OrderValueCents:         orderValue,
		EventsPublished:         published,
		EventsConsumed:          consumed,
	}, nil
}
