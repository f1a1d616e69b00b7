package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventStockReserved     = "StockReserved"
	EventStockReleased     = "StockReleased"
	EventCheckoutCreated   = "CheckoutCreated"
	EventPaymentConfirmed  = "PaymentConfirmed"
	EventPaymentCancelled  = "PaymentCancelled"
	EventPurchaseCreated   = "PurchaseCreated"
	EventPurchaseUpdated   = "PurchaseStatusChanged"
	EventVersion           = 1
	HeaderEventType        = "x-event-type"
	HeaderEventVersion     = "x-event-version"
	HeaderEventCorrelation = "x-correlation-id"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // aggregate id
	Payload       json.RawMessage `json:"payload"`
}

type StockChangedPayload struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Delta       int       `json:"delta"`
	Remaining   int       `json:"remaining"`
}

type CheckoutPayload struct {
	CheckoutID     uuid.UUID      `json:"checkout_id"`
	OwnerEmail     string         `json:"owner_email"`
	Items          []Line         `json:"items,omitempty"`
	Total          string         `json:"total"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	PurchaseStatus PurchaseStatus `json:"purchase_status"`
}

type PurchaseCreatedPayload struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	CheckoutID uuid.UUID `json:"checkout_id"`
	OwnerEmail string    `json:"owner_email"`
	Items      []Line    `json:"items"`
	Total      string    `json:"total"`
}

type PurchaseStatusPayload struct {
	PurchaseID           uuid.UUID `json:"purchase_id"`
	OwnerEmail           string    `json:"owner_email"`
	Transition           string    `json:"transition"`
	Actor                string    `json:"actor"`
	IsShipped            bool      `json:"is_shipped"`
	IsDelivered          bool      `json:"is_delivered"`
	IsOrderCancelled     bool      `json:"is_order_cancelled"`
	RequestToCancelOrder bool      `json:"request_to_cancel_order"`
	Version              int64     `json:"version"`
}

func NewCheckoutPayload(c Checkout) CheckoutPayload {
	return CheckoutPayload{
		CheckoutID:     c.ID,
		OwnerEmail:     c.OwnerEmail,
		Items:          c.Items,
		Total:          Total(c.Items).StringFixed(2),
		PaymentStatus:  c.PaymentStatus,
		PurchaseStatus: c.PurchaseStatus,
	}
}
