package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Store persists carts. MergeLine creates the cart on first use and adds qty to
// an existing line for the same product; ReduceLine removes a line that hits
// zero and deletes the cart once it has no lines left.
type Store interface {
	GetCart(ctx context.Context, owner string) (orders.Cart, error)
	LockCart(ctx context.Context, owner string) (orders.Cart, error)
	MergeLine(ctx context.Context, owner string, line orders.Line) (orders.Cart, error)
	ReduceLine(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error)
	DeleteCart(ctx context.Context, owner string) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (orders.Product, error)
}

type Stock interface {
	Reserve(ctx context.Context, productID uuid.UUID, qty int) (orders.StockLevel, error)
	Release(ctx context.Context, productID uuid.UUID, qty int) (orders.StockLevel, error)
}

// Manager keeps one cart per owner and reserves stock as lines grow.
// Every stock change and its cart write commit together.
type Manager struct {
	store       Store
	catalog     Catalog
	stock       Stock
	tx          orders.Transactor
	viewWorkers int
}

func NewManager(store Store, catalog Catalog, stock Stock, tx orders.Transactor) *Manager {
	return &Manager{store: store, catalog: catalog, stock: stock, tx: tx, viewWorkers: 4}
}

func (m *Manager) AddItem(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error) {
	if qty <= 0 {
		return orders.Cart{}, orders.ErrInvalidQuantity
	}
	owner = orders.NormalizeEmail(owner)
	p, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		return orders.Cart{}, err
	}

	var c orders.Cart
	// cart row first, then product row: the same lock order as Increase/Decrease
	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err = m.store.MergeLine(ctx, owner, orders.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    qty,
		})
		if err != nil {
			return err
		}
		_, err = m.stock.Reserve(ctx, productID, qty)
		return err
	})
	if err != nil {
		return orders.Cart{}, fmt.Errorf("add item: %w", err)
	}
	return c, nil
}

// IncreaseItem grows an existing line only; unlike AddItem it never creates one.
// With no cart at all the line is reported missing.
func (m *Manager) IncreaseItem(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error) {
	if qty <= 0 {
		return orders.Cart{}, orders.ErrInvalidQuantity
	}
	owner = orders.NormalizeEmail(owner)

	var c orders.Cart
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := m.store.LockCart(ctx, owner)
		if errors.Is(err, orders.ErrCartNotFound) {
			return orders.ErrLineNotFound
		}
		if err != nil {
			return err
		}
		line, ok := cur.Line(productID)
		if !ok {
			return orders.ErrLineNotFound
		}
		if _, err := m.stock.Reserve(ctx, productID, qty); err != nil {
			return err
		}
		line.Quantity = qty
		c, err = m.store.MergeLine(ctx, owner, line)
		return err
	})
	if err != nil {
		return orders.Cart{}, fmt.Errorf("increase item: %w", err)
	}
	return c, nil
}

// DecreaseItem returns qty units to stock. The returned cart has no lines when
// the last one was removed, in which case the cart itself is gone.
func (m *Manager) DecreaseItem(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error) {
	if qty <= 0 {
		return orders.Cart{}, orders.ErrInvalidQuantity
	}
	owner = orders.NormalizeEmail(owner)

	var c orders.Cart
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := m.store.LockCart(ctx, owner)
		if err != nil {
			return err
		}
		line, ok := cur.Line(productID)
		if !ok {
			return orders.ErrLineNotFound
		}
		if qty > line.Quantity {
			return orders.Reason(orders.ErrInvalidQuantity,
				fmt.Sprintf("cannot remove %d units, cart holds %d", qty, line.Quantity))
		}
		if _, err := m.stock.Release(ctx, productID, qty); err != nil {
			return err
		}
		c, err = m.store.ReduceLine(ctx, owner, productID, qty)
		return err
	})
	if err != nil {
		return orders.Cart{}, fmt.Errorf("decrease item: %w", err)
	}
	return c, nil
}

// Clear drops the cart. Reserved units are not returned to stock.
func (m *Manager) Clear(ctx context.Context, owner string) error {
	owner = orders.NormalizeEmail(owner)
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := m.store.LockCart(ctx, owner); err != nil {
			return err
		}
		return m.store.DeleteCart(ctx, owner)
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

type ViewLine struct {
	orders.Line
	Picture   string          `json:"picture,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Available bool            `json:"available"`
}

type View struct {
	CartID        uuid.UUID       `json:"cart_id"`
	OwnerEmail    string          `json:"owner_email"`
	Items         []ViewLine      `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Total         decimal.Decimal `json:"total"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// View returns the cart with each line enriched from the live catalog.
// Products removed from the catalog are shown as unavailable.
func (m *Manager) View(ctx context.Context, owner string) (View, error) {
	c, err := m.store.GetCart(ctx, orders.NormalizeEmail(owner))
	if err != nil {
		return View{}, err
	}

	items := make([]ViewLine, len(c.Lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.viewWorkers)
	for i, l := range c.Lines {
		i, l := i, l
		items[i] = ViewLine{Line: l, Subtotal: l.Subtotal()}
		g.Go(func() error {
			p, err := m.catalog.GetProduct(gctx, l.ProductID)
			if errors.Is(err, orders.ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			items[i].Picture = p.Picture
			items[i].Available = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return View{}, fmt.Errorf("view cart: %w", err)
	}

	return View{
		CartID:        c.ID,
		OwnerEmail:    c.OwnerEmail,
		Items:         items,
		TotalQuantity: orders.TotalQuantity(c.Lines),
		Total:         orders.Total(c.Lines),
		UpdatedAt:     c.UpdatedAt,
	}, nil
}
