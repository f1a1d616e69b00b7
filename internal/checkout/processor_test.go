package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	topic, eventType, key string
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) Emit(ctx context.Context, topic, eventType, key string, _ any) {
	orders.AfterCommit(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, recordedEvent{topic, eventType, key})
	})
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.eventType
	}
	return out
}

type fixture struct {
	store *memstore.Store
	carts *cart.Manager
	proc  *Processor
	sink  *recordingSink
	kopi  orders.Product
	teh   orders.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), sink: &recordingSink{}}
	f.kopi = orders.Product{ID: uuid.New(), Name: "Kopi", Price: decimal.RequireFromString("12.50"), StockQuantity: 10}
	f.teh = orders.Product{ID: uuid.New(), Name: "Teh", Price: decimal.RequireFromString("4.00"), StockQuantity: 10}
	f.store.PutProduct(f.kopi)
	f.store.PutProduct(f.teh)
	f.carts = cart.NewManager(f.store, f.store, inventory.NewLedger(f.store, nil), f.store)
	f.proc = NewProcessor(f.store, f.store, f.store, f.store, f.sink)
	return f
}

func (f *fixture) fill(t *testing.T, owner string) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), owner, f.kopi.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(context.Background(), owner, f.teh.ID, 1)
	require.NoError(t, err)
}

func TestCreateCheckout_FreezesCartAndKeepsReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.proc.CreateCheckout(ctx, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrCartEmpty)

	f.fill(t, "ana@shop.io")
	co, err := f.proc.CreateCheckout(ctx, "Ana@Shop.io")
	require.NoError(t, err)

	assert.Equal(t, "ana@shop.io", co.OwnerEmail)
	assert.Equal(t, orders.PaymentPending, co.PaymentStatus)
	assert.Equal(t, orders.PurchasePending, co.PurchaseStatus)
	require.Len(t, co.Items, 2)
	assert.Equal(t, 3, orders.TotalQuantity(co.Items))
	assert.Equal(t, "29.00", orders.Total(co.Items).StringFixed(2))

	_, err = f.store.GetCart(ctx, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrCartNotFound)

	// units move from cart to checkout without touching stock
	p, _ := f.store.GetProduct(ctx, f.kopi.ID)
	assert.Equal(t, 8, p.StockQuantity)

	// the checkout keeps the price it was created with
	f.store.PutProduct(orders.Product{ID: f.kopi.ID, Name: "Kopi", Price: decimal.NewFromInt(99), StockQuantity: 8})
	list, err := f.proc.List(ctx, "ana@shop.io")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "29.00", orders.Total(list[0].Items).StringFixed(2))

	assert.Equal(t, []string{orders.EventCheckoutCreated}, f.sink.types())
}

func TestPaymentTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "ana@shop.io")
	co, err := f.proc.CreateCheckout(ctx, "ana@shop.io")
	require.NoError(t, err)

	_, err = f.proc.ConfirmPayment(ctx, co.ID, "bob@shop.io")
	assert.ErrorIs(t, err, orders.ErrCheckoutNotFound, "foreign checkout is invisible")

	paid, err := f.proc.ConfirmPayment(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, orders.PurchasePurchased, paid.PurchaseStatus)

	again, err := f.proc.ConfirmPayment(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, again.PaymentStatus)

	cancelled, err := f.proc.CancelPayment(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCancelled, cancelled.PaymentStatus)
	assert.Equal(t, orders.PurchaseCancelled, cancelled.PurchaseStatus)

	_, err = f.proc.ConfirmPayment(ctx, co.ID, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	_, err = f.proc.ConvertToPurchase(ctx, co.ID, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrPaymentIncomplete)

	// cancellation does not return stock
	p, _ := f.store.GetProduct(ctx, f.kopi.ID)
	assert.Equal(t, 8, p.StockQuantity)

	assert.Equal(t, []string{
		orders.EventCheckoutCreated,
		orders.EventPaymentConfirmed,
		orders.EventPaymentCancelled,
	}, f.sink.types())
}

func TestConvertToPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "ana@shop.io")
	co, err := f.proc.CreateCheckout(ctx, "ana@shop.io")
	require.NoError(t, err)

	_, err = f.proc.ConvertToPurchase(ctx, co.ID, "ana@shop.io")
	assert.ErrorIs(t, err, orders.ErrPaymentIncomplete, "pending checkout cannot convert")

	_, err = f.proc.ConfirmPayment(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)

	pur, err := f.proc.ConvertToPurchase(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)
	assert.Equal(t, co.ID, pur.SourceCheckoutID)
	assert.Equal(t, "ana@shop.io", pur.OwnerEmail)
	assert.Equal(t, co.Items, pur.Items)
	assert.False(t, pur.IsShipped || pur.IsDelivered || pur.IsOrderCancelled || pur.RequestToCancelOrder || pur.IsUserDataAvailable)
	assert.Equal(t, int64(1), pur.Version)

	list, err := f.proc.List(ctx, "ana@shop.io")
	require.NoError(t, err)
	assert.Empty(t, list, "checkout is removed after conversion")

	replay, err := f.proc.ConvertToPurchase(ctx, co.ID, "ana@shop.io")
	require.NoError(t, err)
	assert.Equal(t, pur.ID, replay.ID)

	_, err = f.proc.ConvertToPurchase(ctx, co.ID, "bob@shop.io")
	assert.ErrorIs(t, err, orders.ErrCheckoutNotFound)

	all, err := f.store.ListAllPurchases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, orders.EventPurchaseCreated, f.sink.types()[2])
}

func TestListAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "ana@shop.io")
	f.fill(t, "bob@shop.io")
	_, err := f.proc.CreateCheckout(ctx, "ana@shop.io")
	require.NoError(t, err)
	_, err = f.proc.CreateCheckout(ctx, "bob@shop.io")
	require.NoError(t, err)

	all, err := f.proc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	mine, err := f.proc.List(ctx, "bob@shop.io")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
