package inventory

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type NoticeStore interface {
	UpsertLowStockNotice(ctx context.Context, n orders.LowStockNotice) error
	ClearLowStockNotice(ctx context.Context, productID uuid.UUID) error
}

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Notifier consumes stock-changed events and keeps the per-product low-stock
// notice in sync with the remaining quantity.
type Notifier struct {
	Store     NoticeStore
	Dedup     Deduper
	Threshold int
	Log       zerolog.Logger
	Now       func() time.Time
}

func (n *Notifier) HandleStockChanged(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// poison message, commit past it
		n.Log.Error().Err(err).Int64("offset", m.Offset).Msg("skip undecodable message")
		return nil
	}
	if env.EventType != orders.EventStockReserved && env.EventType != orders.EventStockReleased {
		return nil
	}

	first, err := n.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.StockChangedPayload](env.Payload)
	if err == nil {
		err = n.apply(ctx, p)
	}
	if err != nil {
		_ = n.Dedup.Forget(ctx, env.EventID)
		return err
	}
	return nil
}

func (n *Notifier) apply(ctx context.Context, p orders.StockChangedPayload) error {
	threshold := n.Threshold
	if threshold <= 0 {
		threshold = orders.DefaultLowStockThreshold
	}
	if p.Remaining > threshold {
		return n.Store.ClearLowStockNotice(ctx, p.ProductID)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	n.Log.Info().Str("product_id", p.ProductID.String()).Int("remaining", p.Remaining).Msg("low stock")
	return n.Store.UpsertLowStockNotice(ctx, orders.LowStockNotice{
		ProductID:    p.ProductID,
		Message:      orders.LowStockMessage(p.ProductName, p.Remaining),
		CurrentStock: p.Remaining,
		CreatedAt:    now().UTC(),
	})
}
