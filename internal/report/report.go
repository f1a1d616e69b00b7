package report

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const uncategorized = "Uncategorized"

// Row is one product joined with its category and any stored low-stock notice.
type Row struct {
	ID             uuid.UUID       `gorm:"column:id"`
	Name           string          `gorm:"column:name"`
	Description    string          `gorm:"column:description"`
	Price          decimal.Decimal `gorm:"column:price"`
	StockQuantity  int             `gorm:"column:stock_quantity"`
	Picture        string          `gorm:"column:picture"`
	OwnerEmail     string          `gorm:"column:owner_email"`
	CategoryName   *string         `gorm:"column:category_name"`
	CategoryActive *bool           `gorm:"column:category_active"`
	Notice         *string         `gorm:"column:notice"`
}

type ProductSummary struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Picture       string          `json:"picture,omitempty"`
	Notification  string          `json:"notification,omitempty"`
}

type CategoryGroup struct {
	Status   string           `json:"status"`
	Products []ProductSummary `json:"products"`
}

// Inventory groups one owner's products by category name.
type Inventory map[string]CategoryGroup

type Reader interface {
	// InventoryRows returns rows for one owner, or for everyone when owner is empty.
	InventoryRows(ctx context.Context, owner string) ([]Row, error)
}

type Service struct {
	reader    Reader
	threshold int
}

func NewService(r Reader, threshold int) *Service {
	if threshold <= 0 {
		threshold = orders.DefaultLowStockThreshold
	}
	return &Service{reader: r, threshold: threshold}
}

func (s *Service) VendorInventory(ctx context.Context, owner string) (Inventory, error) {
	rows, err := s.reader.InventoryRows(ctx, owner)
	if err != nil {
		return nil, err
	}
	return Build(rows, s.threshold), nil
}

// AllInventory is the admin view: every owner's inventory keyed by owner email.
func (s *Service) AllInventory(ctx context.Context) (map[string]Inventory, error) {
	rows, err := s.reader.InventoryRows(ctx, "")
	if err != nil {
		return nil, err
	}
	byOwner := map[string][]Row{}
	for _, r := range rows {
		byOwner[r.OwnerEmail] = append(byOwner[r.OwnerEmail], r)
	}
	out := make(map[string]Inventory, len(byOwner))
	for owner, rs := range byOwner {
		out[owner] = Build(rs, s.threshold)
	}
	return out, nil
}

// Build groups rows by category. Products at or below threshold carry a
// low-stock notification, the stored one when present.
func Build(rows []Row, threshold int) Inventory {
	inv := Inventory{}
	for _, r := range rows {
		name := uncategorized
		if r.CategoryName != nil && *r.CategoryName != "" {
			name = *r.CategoryName
		}
		g, ok := inv[name]
		if !ok {
			g.Status = "inactive"
			if r.CategoryActive == nil || *r.CategoryActive {
				g.Status = "active"
			}
		}
		ps := ProductSummary{
			ID:            r.ID,
			Name:          r.Name,
			Description:   r.Description,
			Price:         r.Price,
			StockQuantity: r.StockQuantity,
			Picture:       r.Picture,
		}
		if r.StockQuantity <= threshold {
			ps.Notification = orders.LowStockMessage(r.Name, r.StockQuantity)
			if r.Notice != nil && *r.Notice != "" {
				ps.Notification = *r.Notice
			}
		}
		g.Products = append(g.Products, ps)
		inv[name] = g
	}
	for name, g := range inv {
		sort.SliceStable(g.Products, func(i, j int) bool { return g.Products[i].Name < g.Products[j].Name })
		inv[name] = g
	}
	return inv
}
