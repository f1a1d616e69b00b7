package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) GetCart(ctx context.Context, owner string) (orders.Cart, error) {
	return s.load(ctx, owner, false)
}

func (s *PGStore) LockCart(ctx context.Context, owner string) (orders.Cart, error) {
	return s.load(ctx, owner, true)
}

func (s *PGStore) load(ctx context.Context, owner string, forUpdate bool) (orders.Cart, error) {
	q := postgres.Conn(ctx, s.DB)
	sql := `SELECT id, owner_email, version, created_at, updated_at FROM carts WHERE owner_email = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var c orders.Cart
	err := q.QueryRow(ctx, sql, owner).Scan(&c.ID, &c.OwnerEmail, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Cart{}, orders.ErrCartNotFound
	}
	if err != nil {
		return orders.Cart{}, err
	}

	rows, err := q.Query(ctx, `
		SELECT product_id, product_name, price, quantity
		FROM cart_lines WHERE cart_id = $1
		ORDER BY added_at, product_id`, c.ID)
	if err != nil {
		return orders.Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l orders.Line
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Price, &l.Quantity); err != nil {
			return orders.Cart{}, err
		}
		c.Lines = append(c.Lines, l)
	}
	return c, rows.Err()
}

func (s *PGStore) MergeLine(ctx context.Context, owner string, line orders.Line) (orders.Cart, error) {
	q := postgres.Conn(ctx, s.DB)
	var cartID uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO carts (id, owner_email) VALUES ($1, $2)
		ON CONFLICT (owner_email) DO UPDATE SET version = carts.version + 1, updated_at = now()
		RETURNING id`, uuid.New(), owner).Scan(&cartID)
	if err != nil {
		return orders.Cart{}, err
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, product_name, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`,
		cartID, line.ProductID, line.ProductName, line.Price, line.Quantity); err != nil {
		return orders.Cart{}, err
	}
	return s.load(ctx, owner, false)
}

func (s *PGStore) ReduceLine(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error) {
	q := postgres.Conn(ctx, s.DB)
	var cartID uuid.UUID
	err := q.QueryRow(ctx, `
		DELETE FROM cart_lines l USING carts c
		WHERE c.id = l.cart_id AND c.owner_email = $1 AND l.product_id = $2 AND l.quantity = $3
		RETURNING l.cart_id`, owner, productID, qty).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = q.QueryRow(ctx, `
			UPDATE cart_lines l SET quantity = l.quantity - $3
			FROM carts c
			WHERE c.id = l.cart_id AND c.owner_email = $1 AND l.product_id = $2 AND l.quantity > $3
			RETURNING l.cart_id`, owner, productID, qty).Scan(&cartID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Cart{}, orders.ErrInvalidQuantity
	}
	if err != nil {
		return orders.Cart{}, err
	}
	tag, err := q.Exec(ctx, `
		DELETE FROM carts WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM cart_lines WHERE cart_id = $1)`, cartID)
	if err != nil {
		return orders.Cart{}, err
	}
	if tag.RowsAffected() == 1 {
		return orders.Cart{ID: cartID, OwnerEmail: owner}, nil
	}
	if _, err := q.Exec(ctx, `UPDATE carts SET version = version + 1, updated_at = now() WHERE id = $1`, cartID); err != nil {
		return orders.Cart{}, err
	}
	return s.load(ctx, owner, false)
}

func (s *PGStore) DeleteCart(ctx context.Context, owner string) error {
	tag, err := postgres.Conn(ctx, s.DB).Exec(ctx, `DELETE FROM carts WHERE owner_email = $1`, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return orders.ErrCartNotFound
	}
	return nil
}
