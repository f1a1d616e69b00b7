package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    uuid.UUID       `json:"category_id"`
	OwnerEmail    string          `json:"owner_email"`
	Picture       string          `json:"picture,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Category struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

// StockLevel is what the ledger reports back after a successful stock change.
type StockLevel struct {
	ProductID   uuid.UUID
	ProductName string
	Remaining   int
}

// Line is a frozen name/price snapshot of a product plus a quantity.
// Cart, checkout and purchase items share this shape.
type Line struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func TotalQuantity(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

type Cart struct {
	ID         uuid.UUID `json:"cart_id"`
	OwnerEmail string    `json:"owner_email"`
	Lines      []Line    `json:"items"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c Cart) Line(productID uuid.UUID) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

type Checkout struct {
	ID             uuid.UUID      `json:"checkout_id"`
	OwnerEmail     string         `json:"owner_email"`
	Items          []Line         `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
	PurchaseStatus PurchaseStatus `json:"purchase_status"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
}

type RecipientDetails struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

func (d RecipientDetails) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.PhoneNumber) == "" || strings.TrimSpace(d.Address) == "" {
		return Reason(ErrInvalidInput, "recipient name, phone number and address are required")
	}
	return nil
}

type Purchase struct {
	ID                   uuid.UUID         `json:"purchase_id"`
	OwnerEmail           string            `json:"owner_email"`
	SourceCheckoutID     uuid.UUID         `json:"checkout_id"`
	PurchaseDate         time.Time         `json:"purchase_date"`
	Items                []Line            `json:"items"`
	IsShipped            bool              `json:"is_shipped"`
	IsDelivered          bool              `json:"is_delivered"`
	IsOrderCancelled     bool              `json:"is_order_cancelled"`
	RequestToCancelOrder bool              `json:"request_to_cancel_order"`
	IsUserDataAvailable  bool              `json:"is_user_data_available"`
	Recipient            *RecipientDetails `json:"recipient_details,omitempty"`
	Version              int64             `json:"version"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Terminal reports whether the purchase accepts no further transitions.
func (p Purchase) Terminal() bool { return p.IsDelivered || p.IsOrderCancelled }

// DefaultLowStockThreshold is the stock level at or below which a product is flagged.
const DefaultLowStockThreshold = 10

func LowStockMessage(productName string, stock int) string {
	return fmt.Sprintf("The stock for product '%s' is low. Current stock quantity is %d.", productName, stock)
}

type LowStockNotice struct {
	ProductID    uuid.UUID `json:"product_id"`
	Message      string    `json:"message"`
	CurrentStock int       `json:"current_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail is the canonical form owner emails are stored in.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// SameOwner compares owner emails the way identities are matched everywhere.
func SameOwner(a, b string) bool { return NormalizeEmail(a) == NormalizeEmail(b) }
