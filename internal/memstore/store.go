// Package memstore is an in-process implementation of every store port,
// used for local runs without Postgres and by service tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/report"
	"github.com/google/uuid"
)

type state struct {
	products   map[uuid.UUID]orders.Product
	categories map[uuid.UUID]orders.Category
	carts      map[string]orders.Cart
	checkouts  map[uuid.UUID]orders.Checkout
	purchases  map[uuid.UUID]orders.Purchase
	notices    map[uuid.UUID]orders.LowStockNotice
}

func (s state) clone() state {
	return state{
		products:   maps.Clone(s.products),
		categories: maps.Clone(s.categories),
		carts:      maps.Clone(s.carts),
		checkouts:  maps.Clone(s.checkouts),
		purchases:  maps.Clone(s.purchases),
		notices:    maps.Clone(s.notices),
	}
}

// Store keeps all state behind one mutex. A transaction holds the mutex for
// its whole duration and restores a snapshot on error. Stored values are
// never mutated in place, so a shallow map clone is a full snapshot.
type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: state{
			products:   map[uuid.UUID]orders.Product{},
			categories: map[uuid.UUID]orders.Category{},
			carts:      map[string]orders.Cart{},
			checkouts:  map[uuid.UUID]orders.Checkout{},
			purchases:  map[uuid.UUID]orders.Purchase{},
			notices:    map[uuid.UUID]orders.LowStockNotice{},
		},
		now: time.Now,
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the mutex unless ctx already runs inside this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snap := s.st.clone()
	ctx, hooks := orders.BeginCommitHooks(ctx)
	err := fn(context.WithValue(ctx, txKey{}, s))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.st = snap
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	hooks.Run()
	return nil
}

type Seed struct {
	Categories []orders.Category `json:"categories"`
	Products   []orders.Product  `json:"products"`
}

// LoadSeed reads a JSON catalog seed.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, c := range seed.Categories {
		s.PutCategory(c)
	}
	for _, p := range seed.Products {
		s.PutProduct(p)
	}
	return nil
}

func (s *Store) PutCategory(c orders.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.categories[c.ID] = c
}

func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.OwnerEmail = orders.NormalizeEmail(p.OwnerEmail)
	s.st.products[p.ID] = p
}

// Notice returns the stored low-stock notice of a product.
func (s *Store) Notice(productID uuid.UUID) (orders.LowStockNotice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.st.notices[productID]
	return n, ok
}

// inventory

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (orders.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (orders.StockLevel, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[id]
	if !ok {
		return orders.StockLevel{}, orders.ErrProductNotFound
	}
	if p.StockQuantity+delta < 0 {
		return orders.StockLevel{}, orders.ErrInsufficientStock
	}
	p.StockQuantity += delta
	p.UpdatedAt = s.now().UTC()
	s.st.products[id] = p
	return orders.StockLevel{ProductID: id, ProductName: p.Name, Remaining: p.StockQuantity}, nil
}

func (s *Store) UpsertLowStockNotice(ctx context.Context, n orders.LowStockNotice) error {
	defer s.lock(ctx)()
	s.st.notices[n.ProductID] = n
	return nil
}

func (s *Store) ClearLowStockNotice(ctx context.Context, productID uuid.UUID) error {
	defer s.lock(ctx)()
	delete(s.st.notices, productID)
	return nil
}

// carts

func (s *Store) GetCart(ctx context.Context, owner string) (orders.Cart, error) {
	defer s.lock(ctx)()
	return s.cart(owner)
}

func (s *Store) LockCart(ctx context.Context, owner string) (orders.Cart, error) {
	return s.GetCart(ctx, owner)
}

func (s *Store) cart(owner string) (orders.Cart, error) {
	c, ok := s.st.carts[owner]
	if !ok {
		return orders.Cart{}, orders.ErrCartNotFound
	}
	c.Lines = orders.CloneLines(c.Lines)
	return c, nil
}

func (s *Store) MergeLine(ctx context.Context, owner string, line orders.Line) (orders.Cart, error) {
	defer s.lock(ctx)()
	now := s.now().UTC()
	c, ok := s.st.carts[owner]
	if !ok {
		c = orders.Cart{ID: uuid.New(), OwnerEmail: owner, CreatedAt: now}
	}
	lines := orders.CloneLines(c.Lines)
	merged := false
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, line)
	}
	c.Lines = lines
	c.Version++
	c.UpdatedAt = now
	s.st.carts[owner] = c
	return s.cart(owner)
}

func (s *Store) ReduceLine(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error) {
	defer s.lock(ctx)()
	c, ok := s.st.carts[owner]
	if !ok {
		return orders.Cart{}, orders.ErrCartNotFound
	}
	lines := make([]orders.Line, 0, len(c.Lines))
	found := false
	for _, l := range c.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
			continue
		}
		found = true
		if l.Quantity < qty {
			return orders.Cart{}, orders.ErrInvalidQuantity
		}
		l.Quantity -= qty
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	if !found {
		return orders.Cart{}, orders.ErrInvalidQuantity
	}
	if len(lines) == 0 {
		delete(s.st.carts, owner)
		return orders.Cart{ID: c.ID, OwnerEmail: owner}, nil
	}
	c.Lines = lines
	c.Version++
	c.UpdatedAt = s.now().UTC()
	s.st.carts[owner] = c
	return s.cart(owner)
}

func (s *Store) DeleteCart(ctx context.Context, owner string) error {
	defer s.lock(ctx)()
	if _, ok := s.st.carts[owner]; !ok {
		return orders.ErrCartNotFound
	}
	delete(s.st.carts, owner)
	return nil
}

// checkouts

func (s *Store) CreateCheckout(ctx context.Context, c orders.Checkout) error {
	defer s.lock(ctx)()
	c.Items = orders.CloneLines(c.Items)
	s.st.checkouts[c.ID] = c
	return nil
}

func (s *Store) LockCheckout(ctx context.Context, id uuid.UUID, owner string) (orders.Checkout, error) {
	defer s.lock(ctx)()
	c, ok := s.st.checkouts[id]
	if !ok || c.OwnerEmail != owner {
		return orders.Checkout{}, orders.ErrCheckoutNotFound
	}
	c.Items = orders.CloneLines(c.Items)
	return c, nil
}

func (s *Store) SetCheckoutStatus(ctx context.Context, id uuid.UUID, from, to orders.PaymentStatus) error {
	defer s.lock(ctx)()
	c, ok := s.st.checkouts[id]
	if !ok {
		return orders.ErrCheckoutNotFound
	}
	if c.PaymentStatus != from {
		return orders.ErrConflict
	}
	c.PaymentStatus = to
	c.PurchaseStatus = orders.PurchaseStatusFor(to)
	s.st.checkouts[id] = c
	return nil
}

func (s *Store) DeleteCheckout(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.st.checkouts[id]; !ok {
		return orders.ErrCheckoutNotFound
	}
	delete(s.st.checkouts, id)
	return nil
}

func (s *Store) ListCheckouts(ctx context.Context, owner string) ([]orders.Checkout, error) {
	return s.checkoutsWhere(ctx, func(c orders.Checkout) bool { return c.OwnerEmail == owner }), nil
}

func (s *Store) ListAllCheckouts(ctx context.Context) ([]orders.Checkout, error) {
	return s.checkoutsWhere(ctx, func(orders.Checkout) bool { return true }), nil
}

func (s *Store) checkoutsWhere(ctx context.Context, keep func(orders.Checkout) bool) []orders.Checkout {
	defer s.lock(ctx)()
	out := []orders.Checkout{}
	for _, c := range s.st.checkouts {
		if keep(c) {
			c.Items = orders.CloneLines(c.Items)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// purchases

func (s *Store) CreatePurchase(ctx context.Context, p orders.Purchase) error {
	defer s.lock(ctx)()
	for _, existing := range s.st.purchases {
		if existing.SourceCheckoutID == p.SourceCheckoutID {
			return orders.Reason(orders.ErrConflict, "checkout has already been converted")
		}
	}
	p.Items = orders.CloneLines(p.Items)
	s.st.purchases[p.ID] = p
	return nil
}

func (s *Store) FindPurchaseByCheckout(ctx context.Context, checkoutID uuid.UUID, owner string) (orders.Purchase, error) {
	defer s.lock(ctx)()
	for _, p := range s.st.purchases {
		if p.SourceCheckoutID == checkoutID && p.OwnerEmail == owner {
			return clonePurchase(p), nil
		}
	}
	return orders.Purchase{}, orders.ErrPurchaseNotFound
}

func (s *Store) GetPurchase(ctx context.Context, id uuid.UUID) (orders.Purchase, error) {
	defer s.lock(ctx)()
	p, ok := s.st.purchases[id]
	if !ok {
		return orders.Purchase{}, orders.ErrPurchaseNotFound
	}
	return clonePurchase(p), nil
}

func (s *Store) SwapPurchase(ctx context.Context, p orders.Purchase, expected int64) (bool, error) {
	defer s.lock(ctx)()
	cur, ok := s.st.purchases[p.ID]
	if !ok {
		return false, orders.ErrPurchaseNotFound
	}
	if cur.Version != expected {
		return false, nil
	}
	p = clonePurchase(p)
	p.Version = expected + 1
	s.st.purchases[p.ID] = p
	return true, nil
}

func (s *Store) ListPurchases(ctx context.Context, owner string) ([]orders.Purchase, error) {
	out := s.purchasesWhere(ctx, func(p orders.Purchase) bool { return p.OwnerEmail == owner })
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out, nil
}

func (s *Store) ListCancelRequests(ctx context.Context) ([]orders.Purchase, error) {
	out := s.purchasesWhere(ctx, func(p orders.Purchase) bool { return p.RequestToCancelOrder && !p.IsOrderCancelled })
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.Before(out[j].PurchaseDate) })
	return out, nil
}

func (s *Store) ListAllPurchases(ctx context.Context) ([]orders.Purchase, error) {
	out := s.purchasesWhere(ctx, func(orders.Purchase) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out, nil
}

func (s *Store) purchasesWhere(ctx context.Context, keep func(orders.Purchase) bool) []orders.Purchase {
	defer s.lock(ctx)()
	out := []orders.Purchase{}
	for _, p := range s.st.purchases {
		if keep(p) {
			out = append(out, clonePurchase(p))
		}
	}
	return out
}

func clonePurchase(p orders.Purchase) orders.Purchase {
	p.Items = orders.CloneLines(p.Items)
	if p.Recipient != nil {
		d := *p.Recipient
		p.Recipient = &d
	}
	return p
}

// reports

func (s *Store) InventoryRows(ctx context.Context, owner string) ([]report.Row, error) {
	defer s.lock(ctx)()
	owner = orders.NormalizeEmail(owner)
	rows := []report.Row{}
	for _, p := range s.st.products {
		if owner != "" && p.OwnerEmail != owner {
			continue
		}
		r := report.Row{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			Picture:       p.Picture,
			OwnerEmail:    p.OwnerEmail,
		}
		if c, ok := s.st.categories[p.CategoryID]; ok {
			name, active := c.Name, c.IsActive
			r.CategoryName, r.CategoryActive = &name, &active
		}
		if n, ok := s.st.notices[p.ID]; ok {
			msg := n.Message
			r.Notice = &msg
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OwnerEmail != rows[j].OwnerEmail {
			return rows[i].OwnerEmail < rows[j].OwnerEmail
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}
