package purchase

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type Transition string

const (
	RequestCancel   Transition = "RequestCancel"
	ConfirmCancel   Transition = "ConfirmCancel"
	MarkShipped     Transition = "MarkShipped"
	MarkDelivered   Transition = "MarkDelivered"
	AddRecipient    Transition = "AddRecipientDetails"
	UpdateRecipient Transition = "UpdateRecipientDetails"
)

type guard func(p orders.Purchase) error

func reject(msg string) error { return orders.Reason(orders.ErrInvalidTransition, msg) }

func notShipped(p orders.Purchase) error {
	if p.IsShipped {
		return reject("purchase has already been shipped")
	}
	return nil
}

// notTerminal rejects delivered and cancelled purchases; neither accepts
// any further transition.
func notTerminal(p orders.Purchase) error {
	switch {
	case !p.Terminal():
		return nil
	case p.IsOrderCancelled:
		return reject("purchase has been cancelled")
	default:
		return reject("purchase has already been delivered")
	}
}

func notRequested(p orders.Purchase) error {
	if p.RequestToCancelOrder {
		return reject("cancellation has already been requested")
	}
	return nil
}

func noRecipient(p orders.Purchase) error {
	if p.IsUserDataAvailable {
		return reject("recipient details already exist, update them instead")
	}
	return nil
}

// A pending cancel request does not block shipping; only a confirmed
// cancellation does.
var guards = map[Transition][]guard{
	RequestCancel:   {notTerminal, notShipped, notRequested},
	ConfirmCancel:   {notTerminal, notShipped},
	MarkShipped:     {notTerminal, notShipped},
	MarkDelivered:   {notTerminal},
	AddRecipient:    {notTerminal, notShipped, noRecipient},
	UpdateRecipient: {notTerminal, notShipped},
}

// Apply checks the guards of t against p and returns the updated purchase.
// details is only read by the recipient transitions.
func Apply(t Transition, p orders.Purchase, details *orders.RecipientDetails) (orders.Purchase, error) {
	gs, ok := guards[t]
	if !ok {
		return p, reject("unknown transition " + string(t))
	}
	for _, g := range gs {
		if err := g(p); err != nil {
			return p, err
		}
	}

	next := p
	switch t {
	case RequestCancel:
		next.RequestToCancelOrder = true
	case ConfirmCancel:
		next.IsOrderCancelled = true
	case MarkShipped:
		next.IsShipped = true
	case MarkDelivered:
		next.IsDelivered = true
	case AddRecipient, UpdateRecipient:
		if details == nil {
			return p, orders.Reason(orders.ErrInvalidInput, "recipient details are required")
		}
		if err := details.Validate(); err != nil {
			return p, err
		}
		d := *details
		next.Recipient = &d
		next.IsUserDataAvailable = true
	}
	return next, nil
}
