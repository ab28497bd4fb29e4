// Package events is the payment-events audit channel. Order creation and
// every reconciliation outcome, including failures the webhook swallows,
// are published here fire-and-forget.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"stripe-checkout/internal/models"
)

// Topic is the Kafka topic carrying PaymentEvent records.
const Topic = "payment-events"

// Publisher emits PaymentEvents. Implemented by KafkaPublisher; tests and
// kafka-less runs use Nop or a recording fake.
type Publisher interface {
	Publish(ctx context.Context, evt models.PaymentEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.PaymentEvent) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
	tracer trace.Tracer
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
		tracer: otel.Tracer("events/publisher"),
	}
}

// Publish keys messages by order id so events for one order stay ordered
// within a partition. The envelope id is filled if the caller left it empty.
func (p *KafkaPublisher) Publish(ctx context.Context, evt models.PaymentEvent) error {
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("publish %s", Topic),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(Topic),
			attribute.String("event.type", evt.Type),
			attribute.String("event.order_id", evt.OrderID),
		),
	)
	defer span.End()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	headers := make([]kafka.Header, 0)
	otel.GetTextMapPropagator().Inject(ctx, &headerCarrier{headers: &headers})

	key := evt.OrderID
	if key == "" {
		key = evt.ID
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    evt.At,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// EnsureTopic creates the payment-events topic if the broker does not have
// it yet.
func EnsureTopic(ctx context.Context, broker string, partitions, replication int) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             Topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

type headerCarrier struct {
	headers *[]kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}
