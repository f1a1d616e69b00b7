package purchase

import (
	"testing"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Guards(t *testing.T) {
	fresh := orders.Purchase{}
	shipped := orders.Purchase{IsShipped: true}
	delivered := orders.Purchase{IsShipped: true, IsDelivered: true}
	cancelled := orders.Purchase{RequestToCancelOrder: true, IsOrderCancelled: true}
	requested := orders.Purchase{RequestToCancelOrder: true}
	withRecipient := orders.Purchase{IsUserDataAvailable: true, Recipient: &orders.RecipientDetails{Name: "a", PhoneNumber: "1", Address: "x"}}
	details := &orders.RecipientDetails{Name: "Ana", PhoneNumber: "0812", Address: "Jl. Merdeka 1"}

	tests := []struct {
		name    string
		tr      Transition
		from    orders.Purchase
		allowed bool
	}{
		{"request on fresh", RequestCancel, fresh, true},
		{"request twice", RequestCancel, requested, false},
		{"request after ship", RequestCancel, shipped, false},
		{"confirm without request", ConfirmCancel, fresh, true},
		{"confirm after request", ConfirmCancel, requested, true},
		{"confirm after ship", ConfirmCancel, shipped, false},
		{"confirm twice", ConfirmCancel, cancelled, false},
		{"ship fresh", MarkShipped, fresh, true},
		{"ship with pending request", MarkShipped, requested, true},
		{"ship cancelled", MarkShipped, cancelled, false},
		{"ship twice", MarkShipped, shipped, false},
		{"deliver shipped", MarkDelivered, shipped, true},
		{"deliver unshipped", MarkDelivered, fresh, true},
		{"deliver twice", MarkDelivered, delivered, false},
		{"deliver cancelled", MarkDelivered, cancelled, false},
		{"add recipient", AddRecipient, fresh, true},
		{"add recipient twice", AddRecipient, withRecipient, false},
		{"update recipient", UpdateRecipient, withRecipient, true},
		{"update after ship", UpdateRecipient, shipped, false},
		{"unknown", Transition("Teleport"), fresh, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.tr, tt.from, details)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, orders.ErrInvalidTransition)
			}
		})
	}
}

func TestApply_SetsFlagsWithoutMutatingInput(t *testing.T) {
	p := orders.Purchase{}
	next, err := Apply(MarkShipped, p, nil)
	require.NoError(t, err)
	assert.True(t, next.IsShipped)
	assert.False(t, p.IsShipped)

	next, err = Apply(AddRecipient, p, &orders.RecipientDetails{Name: "Ana", PhoneNumber: "0812", Address: "Jl. Merdeka 1"})
	require.NoError(t, err)
	assert.True(t, next.IsUserDataAvailable)
	require.NotNil(t, next.Recipient)
	assert.Equal(t, "Ana", next.Recipient.Name)

	_, err = Apply(AddRecipient, p, nil)
	assert.ErrorIs(t, err, orders.ErrInvalidInput)
	_, err = Apply(UpdateRecipient, p, &orders.RecipientDetails{Name: "Ana"})
	assert.ErrorIs(t, err, orders.ErrInvalidInput)
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	details := &orders.RecipientDetails{Name: "Ana", PhoneNumber: "0812", Address: "Jl. Merdeka 1"}
	terminal := map[string]orders.Purchase{
		"delivered":            {IsShipped: true, IsDelivered: true},
		"delivered unshipped":  {IsDelivered: true},
		"cancelled":            {IsOrderCancelled: true},
		"cancelled on request": {RequestToCancelOrder: true, IsOrderCancelled: true},
	}
	all := []Transition{RequestCancel, ConfirmCancel, MarkShipped, MarkDelivered, AddRecipient, UpdateRecipient}

	for name, from := range terminal {
		require.True(t, from.Terminal(), name)
		for _, tr := range all {
			t.Run(name+"/"+string(tr), func(t *testing.T) {
				next, err := Apply(tr, from, details)
				assert.ErrorIs(t, err, orders.ErrInvalidTransition)
				assert.Equal(t, from, next)
			})
		}
	}
}
