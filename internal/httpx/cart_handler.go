package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cartItemReq struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type cartOp func(ctx context.Context, owner string, productID uuid.UUID, qty int) (orders.Cart, error)

func (h *handlers) addItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, h.carts.AddItem)
}

func (h *handlers) increaseItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, h.carts.IncreaseItem)
}

func (h *handlers) decreaseItem(w http.ResponseWriter, r *http.Request) {
	h.changeItem(w, r, h.carts.DecreaseItem)
}

// changeItem applies op and answers with the refreshed cart view. Removing
// the last line deletes the cart, which is reported as an empty view.
func (h *handlers) changeItem(w http.ResponseWriter, r *http.Request, op cartOp) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req cartItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ProductID == uuid.Nil {
		h.fail(w, r, orders.Reason(orders.ErrInvalidInput, "product_id is required"))
		return
	}
	if _, err := op(r.Context(), owner, req.ProductID, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.carts.View(r.Context(), owner)
	if errors.Is(err, orders.ErrCartNotFound) {
		v = cart.View{OwnerEmail: owner, Items: []cart.ViewLine{}, Total: decimal.Zero}
	} else if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handlers) viewCart(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.carts.View(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), owner); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
