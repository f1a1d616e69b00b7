package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store persists purchases. SwapPurchase writes p only if the stored version
// still equals expected, bumping it to expected+1, and reports whether it did.
type Store interface {
	GetPurchase(ctx context.Context, id uuid.UUID) (orders.Purchase, error)
	SwapPurchase(ctx context.Context, p orders.Purchase, expected int64) (bool, error)
	ListPurchases(ctx context.Context, owner string) ([]orders.Purchase, error)
	ListCancelRequests(ctx context.Context) ([]orders.Purchase, error)
	ListAllPurchases(ctx context.Context) ([]orders.Purchase, error)
}

// Cache holds recently read purchases. Set never replaces a cached purchase
// with an older version.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (orders.Purchase, bool)
	Set(ctx context.Context, p orders.Purchase) error
	Invalidate(ctx context.Context, id uuid.UUID)
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (orders.Purchase, bool) { return orders.Purchase{}, false }
func (noCache) Set(context.Context, orders.Purchase) error { return nil }
func (noCache) Invalidate(context.Context, uuid.UUID) {}

const defaultAttempts = 3

// Tracker owns the post-sale flags of a purchase. Every transition is an
// optimistic compare-and-swap on the purchase version.
type Tracker struct {
	store       Store
	cache       Cache
	events      orders.EventSink
	log         zerolog.Logger
	maxAttempts int
	now         func() time.Time
}

func NewTracker(store Store, cache Cache, events orders.EventSink, log zerolog.Logger) *Tracker {
	if cache == nil {
		cache = noCache{}
	}
	if events == nil {
		events = orders.NopSink{}
	}
	return &Tracker{store: store, cache: cache, events: events, log: log, maxAttempts: defaultAttempts, now: time.Now}
}

func (t *Tracker) RequestCancel(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
	return t.apply(ctx, c, id, RequestCancel, ownerOrAdmin(c), nil)
}

// ConfirmCancel does not require a prior cancellation request.
func (t *Tracker) ConfirmCancel(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
	return t.apply(ctx, c, id, ConfirmCancel, staffOnly(c), nil)
}

// MarkShipped is performed by staff on behalf of the purchase owner named in owner.
func (t *Tracker) MarkShipped(ctx context.Context, c auth.Caller, id uuid.UUID, owner string) (orders.Purchase, error) {
	check := func(p orders.Purchase) error {
		if err := staffOnly(c)(p); err != nil {
			return err
		}
		if !orders.SameOwner(p.OwnerEmail, owner) {
			return orders.ErrPurchaseNotFound
		}
		return nil
	}
	return t.apply(ctx, c, id, MarkShipped, check, nil)
}

func (t *Tracker) MarkDelivered(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
	return t.apply(ctx, c, id, MarkDelivered, ownerOrAdmin(c), nil)
}

// SetRecipientDetails stores the delivery recipient. With update=false it
// fails once details exist; with update=true it overwrites them.
func (t *Tracker) SetRecipientDetails(ctx context.Context, c auth.Caller, id uuid.UUID, d orders.RecipientDetails, update bool) (orders.Purchase, error) {
	if err := d.Validate(); err != nil {
		return orders.Purchase{}, err
	}
	tr := AddRecipient
	if update {
		tr = UpdateRecipient
	}
	return t.apply(ctx, c, id, tr, ownerOrAdmin(c), &d)
}

func (t *Tracker) apply(ctx context.Context, c auth.Caller, id uuid.UUID, tr Transition, authorize func(orders.Purchase) error, d *orders.RecipientDetails) (orders.Purchase, error) {
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		cur, err := t.store.GetPurchase(ctx, id)
		if err != nil {
			return orders.Purchase{}, err
		}
		if err := authorize(cur); err != nil {
			return orders.Purchase{}, err
		}
		next, err := Apply(tr, cur, d)
		if err != nil {
			return orders.Purchase{}, fmt.Errorf("%s: %w", tr, err)
		}
		next.Version = cur.Version + 1
		next.UpdatedAt = t.now().UTC()

		ok, err := t.store.SwapPurchase(ctx, next, cur.Version)
		if err != nil {
			return orders.Purchase{}, err
		}
		if ok {
			if err := t.cache.Set(ctx, next); err != nil {
				t.log.Warn().Err(err).Str("purchase_id", id.String()).Msg("purchase cache refresh failed")
				t.cache.Invalidate(ctx, id)
			}
			t.events.Emit(ctx, orders.TopicPurchaseStatus, orders.EventPurchaseUpdated, id.String(), orders.PurchaseStatusPayload{
				PurchaseID:           next.ID,
				OwnerEmail:           next.OwnerEmail,
				Transition:           string(tr),
				Actor:                c.Email,
				IsShipped:            next.IsShipped,
				IsDelivered:          next.IsDelivered,
				IsOrderCancelled:     next.IsOrderCancelled,
				RequestToCancelOrder: next.RequestToCancelOrder,
				Version:              next.Version,
			})
			return next, nil
		}
		t.log.Debug().Str("purchase_id", id.String()).Str("transition", string(tr)).Int("attempt", attempt).Msg("version conflict")
	}
	return orders.Purchase{}, fmt.Errorf("%s: %w", tr, orders.ErrConflict)
}

// Get returns a purchase to its owner or to staff.
func (t *Tracker) Get(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
	p, ok := t.cache.Get(ctx, id)
	if !ok {
		var err error
		p, err = t.store.GetPurchase(ctx, id)
		if err != nil {
			return orders.Purchase{}, err
		}
		if err := t.cache.Set(ctx, p); err != nil {
			t.log.Debug().Err(err).Str("purchase_id", id.String()).Msg("purchase cache fill failed")
		}
	}
	if err := auth.AuthorizeOwner(c, p.OwnerEmail, auth.Staff...); err != nil {
		// do not reveal other owners' purchases
		return orders.Purchase{}, orders.ErrPurchaseNotFound
	}
	return p, nil
}

func (t *Tracker) ListByOwner(ctx context.Context, owner string) ([]orders.Purchase, error) {
	return t.store.ListPurchases(ctx, orders.NormalizeEmail(owner))
}

func (t *Tracker) ListCancelRequests(ctx context.Context) ([]orders.Purchase, error) {
	return t.store.ListCancelRequests(ctx)
}

func (t *Tracker) ListAll(ctx context.Context) ([]orders.Purchase, error) {
	return t.store.ListAllPurchases(ctx)
}

func ownerOrAdmin(c auth.Caller) func(orders.Purchase) error {
	return func(p orders.Purchase) error {
		return auth.AuthorizeOwner(c, p.OwnerEmail, auth.RoleAdmin)
	}
}

func staffOnly(c auth.Caller) func(orders.Purchase) error {
	return func(orders.Purchase) error {
		if !c.HasAny(auth.Staff...) {
			return orders.ErrForbidden
		}
		return nil
	}
}
