package orders

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidInput
	KindInsufficientStock
	KindInvalidState
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidState:
		return "invalid_state_transition"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a recoverable failure surfaced to callers with a stable code.
// Two errors match under errors.Is when their codes are equal, so a sentinel
// still matches after Reason attaches a more specific message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthenticated = &Error{KindUnauthenticated, "UNAUTHENTICATED", "caller could not be authenticated"}
	ErrForbidden       = &Error{KindForbidden, "FORBIDDEN", "caller is not allowed to act on this resource"}

	ErrProductNotFound  = &Error{KindNotFound, "PRODUCT_NOT_FOUND", "product not found"}
	ErrCartNotFound     = &Error{KindNotFound, "CART_NOT_FOUND", "cart not found"}
	ErrLineNotFound     = &Error{KindNotFound, "LINE_NOT_FOUND", "product is not in the cart"}
	ErrCartEmpty        = &Error{KindNotFound, "CART_EMPTY", "cart is empty"}
	ErrCheckoutNotFound = &Error{KindNotFound, "CHECKOUT_NOT_FOUND", "checkout not found"}
	ErrPurchaseNotFound = &Error{KindNotFound, "PURCHASE_NOT_FOUND", "purchase not found"}

	ErrInvalidInput    = &Error{KindInvalidInput, "INVALID_INPUT", "invalid input"}
	ErrInvalidQuantity = &Error{KindInvalidInput, "INVALID_QUANTITY", "invalid quantity"}

	ErrInsufficientStock = &Error{KindInsufficientStock, "INSUFFICIENT_STOCK", "insufficient stock"}

	ErrInvalidTransition = &Error{KindInvalidState, "INVALID_STATE_TRANSITION", "operation not allowed in the current state"}
	ErrPaymentIncomplete = &Error{KindInvalidState, "PAYMENT_INCOMPLETE", "payment has not been completed"}

	ErrConflict = &Error{KindConflict, "CONFLICT", "concurrent update detected, retry the request"}
)

// Reason returns a copy of base carrying a more specific message.
func Reason(base *Error, msg string) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: msg}
}

// KindOf classifies err; anything outside the taxonomy is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
