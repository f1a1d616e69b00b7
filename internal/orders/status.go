package orders

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentCancelled PaymentStatus = "Cancelled"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "Pending"
	PurchasePurchased PurchaseStatus = "Purchased"
	PurchaseCancelled PurchaseStatus = "Cancelled"
)

var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentPaid: true, PaymentCancelled: true},
	PaymentPaid:      {PaymentCancelled: true},
	PaymentCancelled: {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}

// PurchaseStatusFor is the purchase status that accompanies a payment status.
func PurchaseStatusFor(p PaymentStatus) PurchaseStatus {
	switch p {
	case PaymentPaid:
		return PurchasePurchased
	case PaymentCancelled:
		return PurchaseCancelled
	default:
		return PurchasePending
	}
}

// Convertible reports whether a checkout may become a purchase.
func (c Checkout) Convertible() bool {
	return c.PaymentStatus == PaymentPaid && c.PurchaseStatus == PurchasePurchased
}
