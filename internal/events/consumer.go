package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"stripe-checkout/internal/models"
)

// HandlerFunc processes one decoded payment event.
type HandlerFunc func(ctx context.Context, evt models.PaymentEvent) error

type Consumer struct {
	reader  *kafka.Reader
	groupID string
	tracer  trace.Tracer
}

func NewConsumer(brokers []string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          Topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{
		reader:  reader,
		groupID: groupID,
		tracer:  otel.Tracer("events/consumer"),
	}
}

// Listen fetches, decodes and hands each event to handler. A handler error
// skips the commit so the event is redelivered; a decode error commits and
// moves on.
func (c *Consumer) Listen(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		carrier := &headerCarrier{headers: &msg.Headers}
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

		msgCtx, span := c.tracer.Start(msgCtx, fmt.Sprintf("receive %s", Topic),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				semconv.MessagingSystemKafka,
				semconv.MessagingDestinationName(Topic),
				attribute.String("messaging.kafka.message.key", string(msg.Key)),
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
				attribute.String("messaging.kafka.consumer.group", c.groupID),
			),
		)

		var evt models.PaymentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to unmarshal event")
			span.End()
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("failed to commit offset: %w", err)
			}
			continue
		}

		if err := handler(msgCtx, evt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			continue
		}

		span.SetStatus(codes.Ok, "")
		span.End()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to commit offset: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
