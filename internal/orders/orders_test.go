package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("mark shipped: %w", Reason(ErrInvalidTransition, "purchase is cancelled"))

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrPaymentIncomplete))
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, "mark shipped: purchase is cancelled", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindNotFound, KindOf(ErrCartEmpty))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentCancelled, true},
		{PaymentPaid, PaymentCancelled, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentCancelled, PaymentPaid, false},
		{PaymentCancelled, PaymentPending, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s->%s", c.from, c.to), func(t *testing.T) {
			assert.Equal(t, c.want, CanTransition(c.from, c.to))
		})
	}
	assert.Equal(t, PurchasePurchased, PurchaseStatusFor(PaymentPaid))
	assert.Equal(t, PurchaseCancelled, PurchaseStatusFor(PaymentCancelled))
}

func TestTotals(t *testing.T) {
	lines := []Line{
		{ProductID: uuid.New(), Price: decimal.RequireFromString("10.25"), Quantity: 2},
		{ProductID: uuid.New(), Price: decimal.RequireFromString("3.10"), Quantity: 3},
	}
	assert.Equal(t, "29.80", Total(lines).StringFixed(2))
	assert.Equal(t, 5, TotalQuantity(lines))

	cart := Cart{Lines: lines}
	l, ok := cart.Line(lines[1].ProductID)
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)
	_, ok = cart.Line(uuid.New())
	assert.False(t, ok)
}

func TestAfterCommit(t *testing.T) {
	ran := 0
	AfterCommit(context.Background(), func() { ran++ })
	assert.Equal(t, 1, ran, "runs immediately outside a transaction")

	ctx, hooks := BeginCommitHooks(context.Background())
	AfterCommit(ctx, func() { ran++ })
	AfterCommit(ctx, func() { ran++ })
	assert.Equal(t, 1, ran)
	hooks.Run()
	assert.Equal(t, 3, ran)
	hooks.Run()
	assert.Equal(t, 3, ran, "hooks run once")
}

func TestRecipientValidate(t *testing.T) {
	assert.NoError(t, RecipientDetails{Name: "Ana", PhoneNumber: "0812", Address: "Jl. Merdeka 1"}.Validate())
	err := RecipientDetails{Name: "Ana", Address: "x"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, SameOwner(" Ana@Shop.io", "ana@shop.io"))
}
