package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type recordingSink struct {
	mu     sync.Mutex
	events []orders.StockChangedPayload
	types  []string
}

func (r *recordingSink) Emit(_ context.Context, _, eventType, _ string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
	r.events = append(r.events, payload.(orders.StockChangedPayload))
}

func newLedger(t *testing.T, stock int) (*Ledger, *memstore.Store, uuid.UUID, *recordingSink) {
	t.Helper()
	s := memstore.New()
	id := uuid.New()
	s.PutProduct(orders.Product{ID: id, Name: "Kopi", Price: decimal.NewFromInt(12), StockQuantity: stock})
	sink := &recordingSink{}
	return NewLedger(s, sink), s, id, sink
}

func TestLedger_ReserveRelease(t *testing.T) {
	l, s, id, sink := newLedger(t, 5)
	ctx := context.Background()

	lvl, err := l.Reserve(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, lvl.Remaining)

	_, err = l.Reserve(ctx, id, 3)
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)
	p, _ := s.GetProduct(ctx, id)
	assert.Equal(t, 2, p.StockQuantity, "rejected reserve has no effect")

	lvl, err = l.Release(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, lvl.Remaining)

	require.Len(t, sink.events, 2)
	assert.Equal(t, []string{orders.EventStockReserved, orders.EventStockReleased}, sink.types)
	assert.Equal(t, -3, sink.events[0].Delta)
	assert.Equal(t, "Kopi", sink.events[0].ProductName)
}

func TestLedger_RejectsBadInput(t *testing.T) {
	l, _, id, _ := newLedger(t, 5)
	ctx := context.Background()

	for _, q := range []int{0, -1} {
		_, err := l.Reserve(ctx, id, q)
		assert.ErrorIs(t, err, orders.ErrInvalidQuantity)
		_, err = l.Release(ctx, id, q)
		assert.ErrorIs(t, err, orders.ErrInvalidQuantity)
	}
	_, err := l.Reserve(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestLedger_ConcurrentReserveNeverOversells(t *testing.T) {
	const stock, shoppers = 25, 100
	l, s, id, _ := newLedger(t, stock)

	var ok, rejected atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < shoppers; i++ {
		g.Go(func() error {
			_, err := l.Reserve(ctx, id, 1)
			switch {
			case err == nil:
				ok.Add(1)
			case orders.KindOf(err) == orders.KindInsufficientStock:
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(stock), ok.Load())
	assert.Equal(t, int32(shoppers-stock), rejected.Load())
	p, _ := s.GetProduct(context.Background(), id)
	assert.Equal(t, 0, p.StockQuantity)
}

func TestLedger_LastUnitsRace(t *testing.T) {
	// two shoppers want 3 units each with 5 in stock: exactly one wins
	l, s, id, _ := newLedger(t, 5)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Reserve(context.Background(), id, 3); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	p, _ := s.GetProduct(context.Background(), id)
	assert.Equal(t, 2, p.StockQuantity)
}
