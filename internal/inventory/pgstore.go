package inventory

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

func (s *PGStore) GetProduct(ctx context.Context, id uuid.UUID) (orders.Product, error) {
	var p orders.Product
	var category *uuid.UUID
	err := postgres.Conn(ctx, s.DB).QueryRow(ctx, `
		SELECT id, name, description, price, stock_quantity, category_id, owner_email, picture, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &category, &p.OwnerEmail, &p.Picture, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	if category != nil {
		p.CategoryID = *category
	}
	return p, nil
}

// AdjustStock applies delta guarded by stock_quantity + delta >= 0 in one statement,
// so concurrent reservations on the same row can never oversell.
func (s *PGStore) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (orders.StockLevel, error) {
	q := postgres.Conn(ctx, s.DB)
	lvl := orders.StockLevel{ProductID: id}
	err := q.QueryRow(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING name, stock_quantity`, id, delta).Scan(&lvl.ProductName, &lvl.Remaining)
	if err == nil {
		return lvl, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return orders.StockLevel{}, err
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return orders.StockLevel{}, err
	}
	if !exists {
		return orders.StockLevel{}, orders.ErrProductNotFound
	}
	return orders.StockLevel{}, orders.ErrInsufficientStock
}

func (s *PGStore) UpsertLowStockNotice(ctx context.Context, n orders.LowStockNotice) error {
	_, err := postgres.Conn(ctx, s.DB).Exec(ctx, `
		INSERT INTO product_notifications (product_id, message, current_stock, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE
		SET message = EXCLUDED.message, current_stock = EXCLUDED.current_stock, created_at = EXCLUDED.created_at`,
		n.ProductID, n.Message, n.CurrentStock, n.CreatedAt)
	return err
}

func (s *PGStore) ClearLowStockNotice(ctx context.Context, productID uuid.UUID) error {
	_, err := postgres.Conn(ctx, s.DB).Exec(ctx, `DELETE FROM product_notifications WHERE product_id = $1`, productID)
	return err
}
