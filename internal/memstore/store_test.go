package memstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollbackRestoresState(t *testing.T) {
	s := New()
	p := orders.Product{ID: uuid.New(), Name: "Kopi", Price: decimal.NewFromInt(5), StockQuantity: 5}
	s.PutProduct(p)
	ctx := context.Background()

	committed := false
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		orders.AfterCommit(ctx, func() { committed = true })
		if _, err := s.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		if _, err := s.MergeLine(ctx, "ana@shop.io", orders.Line{ProductID: p.ID, Quantity: 3}); err != nil {
			return err
		}
		return errors.New("cart write failed")
	})
	require.Error(t, err)
	assert.False(t, committed)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
	_, err = s.GetCart(ctx, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrCartNotFound)
}

func TestWithinTx_NestedJoinsAndCommits(t *testing.T) {
	s := New()
	p := orders.Product{ID: uuid.New(), Name: "Kopi", StockQuantity: 5}
	s.PutProduct(p)

	hooks := 0
	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		orders.AfterCommit(ctx, func() { hooks++ })
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.AdjustStock(ctx, p.ID, -5)
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, hooks)

	_, err = s.AdjustStock(context.Background(), p.ID, -1)
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)
	_, err = s.AdjustStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestCartLines(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := s.MergeLine(ctx, "ana@shop.io", orders.Line{ProductID: a, Quantity: 2})
	require.NoError(t, err)
	_, err = s.MergeLine(ctx, "ana@shop.io", orders.Line{ProductID: b, Quantity: 1})
	require.NoError(t, err)
	c, err := s.MergeLine(ctx, "ana@shop.io", orders.Line{ProductID: a, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)
	l, _ := c.Line(a)
	assert.Equal(t, 5, l.Quantity)
	assert.Equal(t, int64(3), c.Version)

	_, err = s.ReduceLine(ctx, "ana@shop.io", a, 6)
	assert.ErrorIs(t, err, orders.ErrInvalidQuantity)

	c, err = s.ReduceLine(ctx, "ana@shop.io", a, 5)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)

	c, err = s.ReduceLine(ctx, "ana@shop.io", b, 1)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	_, err = s.GetCart(ctx, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrCartNotFound)
}

func TestSwapPurchase(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := orders.Purchase{ID: uuid.New(), SourceCheckoutID: uuid.New(), OwnerEmail: "ana@shop.io", Version: 1}
	require.NoError(t, s.CreatePurchase(ctx, p))

	dup := p
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.CreatePurchase(ctx, dup), orders.ErrConflict)

	p.IsShipped = true
	ok, err := s.SwapPurchase(ctx, p, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SwapPurchase(ctx, p, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale version loses")

	got, err := s.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.IsShipped)
}

func TestLoadSeedAndInventoryRows(t *testing.T) {
	s := New()
	catID := uuid.New()
	seed := `{
		"categories": [{"id": "` + catID.String() + `", "name": "Drinks", "is_active": true}],
		"products": [
			{"name": "Kopi", "price": "12.50", "stock_quantity": 4, "category_id": "` + catID.String() + `", "owner_email": "Vendor@Shop.io"},
			{"name": "Sabun", "price": "3", "stock_quantity": 40, "owner_email": "other@shop.io"}
		]
	}`
	require.NoError(t, s.LoadSeed(strings.NewReader(seed)))

	rows, err := s.InventoryRows(context.Background(), "vendor@shop.io")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kopi", rows[0].Name)
	require.NotNil(t, rows[0].CategoryName)
	assert.Equal(t, "Drinks", *rows[0].CategoryName)
	assert.True(t, rows[0].Price.Equal(decimal.RequireFromString("12.5")))

	all, err := s.InventoryRows(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
