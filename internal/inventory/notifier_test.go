package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDedup struct {
	seen    map[string]bool
	err     error
	forgets int
}

func (d *memDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	d.forgets++
	delete(d.seen, id)
	return nil
}

type failingNotices struct{}

func (failingNotices) UpsertLowStockNotice(context.Context, orders.LowStockNotice) error {
	return errors.New("db down")
}

func (failingNotices) ClearLowStockNotice(context.Context, uuid.UUID) error { return nil }

func stockMessage(t *testing.T, eventID, eventType string, p orders.StockChangedPayload) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Payload:      kafkax.MustMarshal(p),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestNotifier_LowStockLifecycle(t *testing.T) {
	s := memstore.New()
	n := &Notifier{Store: s, Dedup: &memDedup{seen: map[string]bool{}}, Threshold: 10, Log: zerolog.Nop()}
	ctx := context.Background()
	pid := uuid.New()

	msg := stockMessage(t, "e1", orders.EventStockReserved, orders.StockChangedPayload{ProductID: pid, ProductName: "Kopi", Delta: -5, Remaining: 10})
	require.NoError(t, n.HandleStockChanged(ctx, msg))

	notice, ok := s.Notice(pid)
	require.True(t, ok)
	assert.Equal(t, "The stock for product 'Kopi' is low. Current stock quantity is 10.", notice.Message)
	assert.Equal(t, 10, notice.CurrentStock)

	msg = stockMessage(t, "e2", orders.EventStockReleased, orders.StockChangedPayload{ProductID: pid, ProductName: "Kopi", Delta: 5, Remaining: 15})
	require.NoError(t, n.HandleStockChanged(ctx, msg))
	_, ok = s.Notice(pid)
	assert.False(t, ok, "restocked product loses its notice")
}

func TestNotifier_SkipsDuplicatesAndForeignEvents(t *testing.T) {
	s := memstore.New()
	dedup := &memDedup{seen: map[string]bool{}}
	n := &Notifier{Store: s, Dedup: dedup, Log: zerolog.Nop()}
	ctx := context.Background()
	pid := uuid.New()

	require.NoError(t, n.HandleStockChanged(ctx, kafkago.Message{Value: []byte("garbage")}))
	require.NoError(t, n.HandleStockChanged(ctx, stockMessage(t, "x", orders.EventCheckoutCreated, orders.StockChangedPayload{})))
	assert.Empty(t, dedup.seen)

	msg := stockMessage(t, "e1", orders.EventStockReserved, orders.StockChangedPayload{ProductID: pid, ProductName: "Kopi", Remaining: 2})
	require.NoError(t, n.HandleStockChanged(ctx, msg))
	require.NoError(t, s.ClearLowStockNotice(ctx, pid))
	require.NoError(t, n.HandleStockChanged(ctx, msg))
	_, ok := s.Notice(pid)
	assert.False(t, ok, "redelivered event is not applied twice")
}

func TestNotifier_FailureAllowsRetry(t *testing.T) {
	dedup := &memDedup{seen: map[string]bool{}}
	n := &Notifier{Store: failingNotices{}, Dedup: dedup, Log: zerolog.Nop()}
	msg := stockMessage(t, "e1", orders.EventStockReserved, orders.StockChangedPayload{ProductID: uuid.New(), Remaining: 1})

	assert.Error(t, n.HandleStockChanged(context.Background(), msg))
	assert.Equal(t, 1, dedup.forgets)
	assert.False(t, dedup.seen["e1"])

	dedup.err = errors.New("redis down")
	assert.Error(t, n.HandleStockChanged(context.Background(), msg))
}
