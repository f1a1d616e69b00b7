package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
)

// Store persists checkouts. Lookups by id also match the owner; a checkout
// owned by someone else is reported as not found.
type Store interface {
	CreateCheckout(ctx context.Context, c orders.Checkout) error
	LockCheckout(ctx context.Context, id uuid.UUID, owner string) (orders.Checkout, error)
	SetCheckoutStatus(ctx context.Context, id uuid.UUID, from, to orders.PaymentStatus) error
	DeleteCheckout(ctx context.Context, id uuid.UUID) error
	ListCheckouts(ctx context.Context, owner string) ([]orders.Checkout, error)
	ListAllCheckouts(ctx context.Context) ([]orders.Checkout, error)
}

type Carts interface {
	LockCart(ctx context.Context, owner string) (orders.Cart, error)
	DeleteCart(ctx context.Context, owner string) error
}

type Purchases interface {
	CreatePurchase(ctx context.Context, p orders.Purchase) error
	FindPurchaseByCheckout(ctx context.Context, checkoutID uuid.UUID, owner string) (orders.Purchase, error)
}

type Processor struct {
	store     Store
	carts     Carts
	purchases Purchases
	tx        orders.Transactor
	events    orders.EventSink
	now       func() time.Time
}

func NewProcessor(store Store, carts Carts, purchases Purchases, tx orders.Transactor, events orders.EventSink) *Processor {
	if events == nil {
		events = orders.NopSink{}
	}
	return &Processor{store: store, carts: carts, purchases: purchases, tx: tx, events: events, now: time.Now}
}

// CreateCheckout freezes the owner's cart into a pending checkout and deletes the cart in the same transaction.
func (p *Processor) CreateCheckout(ctx context.Context, owner string) (orders.Checkout, error) {
	owner = orders.NormalizeEmail(owner)
	var co orders.Checkout
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := p.carts.LockCart(ctx, owner)
		if errors.Is(err, orders.ErrCartNotFound) {
			return orders.ErrCartEmpty
		}
		if err != nil {
			return err
		}
		if len(c.Lines) == 0 {
			return orders.ErrCartEmpty
		}
		co = orders.Checkout{
			ID:             uuid.New(),
			OwnerEmail:     owner,
			Items:          orders.CloneLines(c.Lines),
			CreatedAt:      p.now().UTC(),
			PurchaseStatus: orders.PurchasePending,
			PaymentStatus:  orders.PaymentPending,
		}
		if err := p.store.CreateCheckout(ctx, co); err != nil {
			return err
		}
		if err := p.carts.DeleteCart(ctx, owner); err != nil {
			return err
		}
		p.events.Emit(ctx, orders.TopicCheckoutCreated, orders.EventCheckoutCreated, co.ID.String(), orders.NewCheckoutPayload(co))
		return nil
	})
	if err != nil {
		return orders.Checkout{}, fmt.Errorf("create checkout: %w", err)
	}
	return co, nil
}

// ConfirmPayment records the externally asserted payment. Confirming an
// already paid checkout returns it unchanged.
func (p *Processor) ConfirmPayment(ctx context.Context, id uuid.UUID, owner string) (orders.Checkout, error) {
	co, err := p.setStatus(ctx, id, owner, orders.PaymentPaid, orders.TopicPaymentConfirmed, orders.EventPaymentConfirmed)
	if err != nil {
		return orders.Checkout{}, fmt.Errorf("confirm payment: %w", err)
	}
	return co, nil
}

// CancelPayment cancels a pending or paid checkout. Reserved stock stays reserved.
func (p *Processor) CancelPayment(ctx context.Context, id uuid.UUID, owner string) (orders.Checkout, error) {
	co, err := p.setStatus(ctx, id, owner, orders.PaymentCancelled, orders.TopicPaymentCancelled, orders.EventPaymentCancelled)
	if err != nil {
		return orders.Checkout{}, fmt.Errorf("cancel payment: %w", err)
	}
	return co, nil
}

func (p *Processor) setStatus(ctx context.Context, id uuid.UUID, owner string, to orders.PaymentStatus, topic, eventType string) (orders.Checkout, error) {
	owner = orders.NormalizeEmail(owner)
	var co orders.Checkout
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := p.store.LockCheckout(ctx, id, owner)
		if err != nil {
			return err
		}
		if cur.PaymentStatus == to {
			co = cur
			return nil
		}
		if !orders.CanTransition(cur.PaymentStatus, to) {
			return orders.Reason(orders.ErrInvalidTransition,
				fmt.Sprintf("checkout payment is %s, cannot become %s", cur.PaymentStatus, to))
		}
		if err := p.store.SetCheckoutStatus(ctx, id, cur.PaymentStatus, to); err != nil {
			return err
		}
		co = cur
		co.PaymentStatus = to
		co.PurchaseStatus = orders.PurchaseStatusFor(to)
		p.events.Emit(ctx, topic, eventType, co.ID.String(), orders.NewCheckoutPayload(co))
		return nil
	})
	return co, err
}

// ConvertToPurchase turns a paid checkout into a purchase and removes the
// checkout. Retrying after success returns the purchase already created.
func (p *Processor) ConvertToPurchase(ctx context.Context, id uuid.UUID, owner string) (orders.Purchase, error) {
	owner = orders.NormalizeEmail(owner)
	var pur orders.Purchase
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		co, err := p.store.LockCheckout(ctx, id, owner)
		if errors.Is(err, orders.ErrCheckoutNotFound) {
			existing, ferr := p.purchases.FindPurchaseByCheckout(ctx, id, owner)
			if ferr == nil {
				pur = existing
				return nil
			}
			if !errors.Is(ferr, orders.ErrPurchaseNotFound) {
				return ferr
			}
			return err
		}
		if err != nil {
			return err
		}
		if !co.Convertible() {
			return orders.ErrPaymentIncomplete
		}
		now := p.now().UTC()
		pur = orders.Purchase{
			ID:               uuid.New(),
			OwnerEmail:       co.OwnerEmail,
			SourceCheckoutID: co.ID,
			PurchaseDate:     now,
			Items:            orders.CloneLines(co.Items),
			Version:          1,
			UpdatedAt:        now,
		}
		if err := p.purchases.CreatePurchase(ctx, pur); err != nil {
			return err
		}
		if err := p.store.DeleteCheckout(ctx, co.ID); err != nil {
			return err
		}
		p.events.Emit(ctx, orders.TopicPurchaseCreated, orders.EventPurchaseCreated, pur.ID.String(), orders.PurchaseCreatedPayload{
			PurchaseID: pur.ID,
			CheckoutID: co.ID,
			OwnerEmail: pur.OwnerEmail,
			Items:      pur.Items,
			Total:      orders.Total(pur.Items).StringFixed(2),
		})
		return nil
	})
	if err != nil {
		return orders.Purchase{}, fmt.Errorf("convert to purchase: %w", err)
	}
	return pur, nil
}

func (p *Processor) List(ctx context.Context, owner string) ([]orders.Checkout, error) {
	return p.store.ListCheckouts(ctx, orders.NormalizeEmail(owner))
}

func (p *Processor) ListAll(ctx context.Context) ([]orders.Checkout, error) {
	return p.store.ListAllCheckouts(ctx)
}
