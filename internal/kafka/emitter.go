package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

// Emitter wraps payloads in the v1 envelope and hands them to the producer after commit.
type Emitter struct {
	producer publisher
	service  string
	now      func() time.Time
}

func NewEmitter(p *Producer, service string) *Emitter {
	return &Emitter{producer: p, service: service, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, key string, payload any) {
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  orders.EventVersion,
		OccurredAt:    e.now().UTC(),
		Producer:      e.service,
		TraceID:       orders.TraceID(ctx),
		CorrelationID: key,
		Payload:       MustMarshal(payload),
	}
	value := MustMarshal(env)
	orders.AfterCommit(ctx, func() {
		e.producer.Publish(topic, orders.PartitionKey(key), value,
			kafka.Header{Key: orders.HeaderEventType, Value: []byte(eventType)},
			kafka.Header{Key: orders.HeaderEventVersion, Value: []byte(strconv.Itoa(orders.EventVersion))},
			kafka.Header{Key: orders.HeaderEventCorrelation, Value: []byte(key)},
		)
	})
}

// Header looks up a message header value.
func Header(m kafka.Message, k string) string {
	for _, h := range m.Headers {
		if h.Key == k {
			return string(h.Value)
		}
	}
	return ""
}
