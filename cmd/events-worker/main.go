package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"stripe-checkout/internal/config"
	"stripe-checkout/internal/events"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/telemetry"
)

const groupID = "payment-events-audit"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	tel, err := telemetry.Setup(ctx, "events-worker")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer tel.Shutdown(context.Background())
	log := tel.Log

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		panic("failed to create metrics: " + err.Error())
	}

	if err := events.EnsureTopic(ctx, cfg.KafkaBroker, 3, 1); err != nil {
		log.Warn("failed to create payment-events topic (may already exist)", zap.Error(err))
	}

	consumer := events.NewConsumer([]string{cfg.KafkaBroker}, groupID)
	defer consumer.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down events-worker...")
		cancel()
	}()

	log.Info("events-worker started",
		zap.String("topic", events.Topic),
		zap.String("group_id", groupID),
	)

	handler := func(ctx context.Context, evt models.PaymentEvent) error {
		metrics.EventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", evt.Type)))

		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.String("order_id", evt.OrderID),
			zap.String("source", evt.Source),
			zap.Time("at", evt.At),
		}
		if evt.SessionID != "" {
			fields = append(fields, zap.String("session_id", evt.SessionID))
		}
		if evt.Status != "" {
			fields = append(fields, zap.String("status", string(evt.Status)))
		}

		if evt.Type == models.EventReconcileError {
			fields = append(fields, zap.String("error", evt.Error))
			log.Warn("reconciliation dropped a mutation", fields...)
			return nil
		}

		log.Info("payment event", fields...)
		return nil
	}

	if err := consumer.Listen(ctx, handler); err != nil {
		log.Error("consumer error", zap.Error(err))
	}
}
