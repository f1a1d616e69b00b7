package inventory

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
)

// Store is the catalog side of the ledger. AdjustStock must apply delta in a
// single conditional write that never lets stock drop below zero.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (orders.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (orders.StockLevel, error)
}

// Ledger owns every stock mutation.
type Ledger struct {
	store  Store
	events orders.EventSink
}

func NewLedger(store Store, events orders.EventSink) *Ledger {
	if events == nil {
		events = orders.NopSink{}
	}
	return &Ledger{store: store, events: events}
}

// Reserve takes qty units out of stock, failing with ErrInsufficientStock when fewer are available.
func (l *Ledger) Reserve(ctx context.Context, productID uuid.UUID, qty int) (orders.StockLevel, error) {
	if qty <= 0 {
		return orders.StockLevel{}, orders.ErrInvalidQuantity
	}
	lvl, err := l.store.AdjustStock(ctx, productID, -qty)
	if err != nil {
		return orders.StockLevel{}, fmt.Errorf("reserve %s: %w", productID, err)
	}
	l.emit(ctx, orders.EventStockReserved, -qty, lvl)
	return lvl, nil
}

// Release puts qty units back.
func (l *Ledger) Release(ctx context.Context, productID uuid.UUID, qty int) (orders.StockLevel, error) {
	if qty <= 0 {
		return orders.StockLevel{}, orders.ErrInvalidQuantity
	}
	lvl, err := l.store.AdjustStock(ctx, productID, qty)
	if err != nil {
		return orders.StockLevel{}, fmt.Errorf("release %s: %w", productID, err)
	}
	l.emit(ctx, orders.EventStockReleased, qty, lvl)
	return lvl, nil
}

func (l *Ledger) emit(ctx context.Context, eventType string, delta int, lvl orders.StockLevel) {
	l.events.Emit(ctx, orders.TopicStockChanged, eventType, lvl.ProductID.String(), orders.StockChangedPayload{
		ProductID:   lvl.ProductID,
		ProductName: lvl.ProductName,
		Delta:       delta,
		Remaining:   lvl.Remaining,
	})
}
