package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

const checkoutColumns = `id, owner_email, items, purchase_status, payment_status, created_at`

func (s *PGStore) CreateCheckout(ctx context.Context, c orders.Checkout) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	_, err = postgres.Conn(ctx, s.DB).Exec(ctx, `
		INSERT INTO checkouts (`+checkoutColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OwnerEmail, items, c.PurchaseStatus, c.PaymentStatus, c.CreatedAt)
	return err
}

func (s *PGStore) LockCheckout(ctx context.Context, id uuid.UUID, owner string) (orders.Checkout, error) {
	row := postgres.Conn(ctx, s.DB).QueryRow(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE id = $1 AND owner_email = $2 FOR UPDATE`, id, owner)
	c, err := scanCheckout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Checkout{}, orders.ErrCheckoutNotFound
	}
	return c, err
}

// SetCheckoutStatus is a compare-and-swap on payment_status.
func (s *PGStore) SetCheckoutStatus(ctx context.Context, id uuid.UUID, from, to orders.PaymentStatus) error {
	tag, err := postgres.Conn(ctx, s.DB).Exec(ctx, `
		UPDATE checkouts SET payment_status = $3, purchase_status = $4
		WHERE id = $1 AND payment_status = $2`,
		id, from, to, orders.PurchaseStatusFor(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return orders.ErrConflict
	}
	return nil
}

func (s *PGStore) DeleteCheckout(ctx context.Context, id uuid.UUID) error {
	tag, err := postgres.Conn(ctx, s.DB).Exec(ctx, `DELETE FROM checkouts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return orders.ErrCheckoutNotFound
	}
	return nil
}

func (s *PGStore) ListCheckouts(ctx context.Context, owner string) ([]orders.Checkout, error) {
	return s.list(ctx, `SELECT `+checkoutColumns+` FROM checkouts WHERE owner_email = $1 ORDER BY created_at DESC`, owner)
}

func (s *PGStore) ListAllCheckouts(ctx context.Context) ([]orders.Checkout, error) {
	return s.list(ctx, `SELECT `+checkoutColumns+` FROM checkouts ORDER BY created_at DESC`)
}

func (s *PGStore) list(ctx context.Context, sql string, args ...any) ([]orders.Checkout, error) {
	rows, err := postgres.Conn(ctx, s.DB).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []orders.Checkout{}
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCheckout(row pgx.Row) (orders.Checkout, error) {
	var (
		c     orders.Checkout
		items []byte
	)
	if err := row.Scan(&c.ID, &c.OwnerEmail, &items, &c.PurchaseStatus, &c.PaymentStatus, &c.CreatedAt); err != nil {
		return orders.Checkout{}, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return orders.Checkout{}, err
	}
	return c, nil
}
