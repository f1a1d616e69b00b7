package purchase

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

const purchaseColumns = `id, owner_email, source_checkout_id, purchase_date, items,
	is_shipped, is_delivered, is_order_cancelled, request_to_cancel_order, is_user_data_available,
	recipient_name, recipient_phone, recipient_address, version, updated_at`

func (s *PGStore) CreatePurchase(ctx context.Context, p orders.Purchase) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	name, phone, addr := recipientColumns(p.Recipient)
	_, err = postgres.Conn(ctx, s.DB).Exec(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.OwnerEmail, p.SourceCheckoutID, p.PurchaseDate, items,
		p.IsShipped, p.IsDelivered, p.IsOrderCancelled, p.RequestToCancelOrder, p.IsUserDataAvailable,
		name, phone, addr, p.Version, p.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return orders.Reason(orders.ErrConflict, "checkout has already been converted")
	}
	return err
}

func (s *PGStore) FindPurchaseByCheckout(ctx context.Context, checkoutID uuid.UUID, owner string) (orders.Purchase, error) {
	return s.one(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE source_checkout_id = $1 AND owner_email = $2`, checkoutID, owner)
}

func (s *PGStore) GetPurchase(ctx context.Context, id uuid.UUID) (orders.Purchase, error) {
	return s.one(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
}

func (s *PGStore) SwapPurchase(ctx context.Context, p orders.Purchase, expected int64) (bool, error) {
	name, phone, addr := recipientColumns(p.Recipient)
	tag, err := postgres.Conn(ctx, s.DB).Exec(ctx, `
		UPDATE purchases SET
			is_shipped = $3, is_delivered = $4, is_order_cancelled = $5,
			request_to_cancel_order = $6, is_user_data_available = $7,
			recipient_name = $8, recipient_phone = $9, recipient_address = $10,
			version = $2 + 1, updated_at = $11
		WHERE id = $1 AND version = $2`,
		p.ID, expected, p.IsShipped, p.IsDelivered, p.IsOrderCancelled,
		p.RequestToCancelOrder, p.IsUserDataAvailable, name, phone, addr, p.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListPurchases(ctx context.Context, owner string) ([]orders.Purchase, error) {
	return s.list(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE owner_email = $1 ORDER BY purchase_date DESC`, owner)
}

func (s *PGStore) ListCancelRequests(ctx context.Context) ([]orders.Purchase, error) {
	return s.list(ctx, `SELECT `+purchaseColumns+` FROM purchases
		WHERE request_to_cancel_order AND NOT is_order_cancelled ORDER BY purchase_date`)
}

func (s *PGStore) ListAllPurchases(ctx context.Context) ([]orders.Purchase, error) {
	return s.list(ctx, `SELECT `+purchaseColumns+` FROM purchases ORDER BY purchase_date DESC`)
}

func (s *PGStore) one(ctx context.Context, sql string, args ...any) (orders.Purchase, error) {
	p, err := scanPurchase(postgres.Conn(ctx, s.DB).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Purchase{}, orders.ErrPurchaseNotFound
	}
	return p, err
}

func (s *PGStore) list(ctx context.Context, sql string, args ...any) ([]orders.Purchase, error) {
	rows, err := postgres.Conn(ctx, s.DB).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []orders.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPurchase(row pgx.Row) (orders.Purchase, error) {
	var (
		p                 orders.Purchase
		items             []byte
		name, phone, addr *string
	)
	err := row.Scan(&p.ID, &p.OwnerEmail, &p.SourceCheckoutID, &p.PurchaseDate, &items,
		&p.IsShipped, &p.IsDelivered, &p.IsOrderCancelled, &p.RequestToCancelOrder, &p.IsUserDataAvailable,
		&name, &phone, &addr, &p.Version, &p.UpdatedAt)
	if err != nil {
		return orders.Purchase{}, err
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return orders.Purchase{}, err
	}
	if name != nil {
		p.Recipient = &orders.RecipientDetails{Name: *name, PhoneNumber: deref(phone), Address: deref(addr)}
	}
	return p, nil
}

func recipientColumns(d *orders.RecipientDetails) (name, phone, addr *string) {
	if d == nil {
		return nil, nil, nil
	}
	return &d.Name, &d.PhoneNumber, &d.Address
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
