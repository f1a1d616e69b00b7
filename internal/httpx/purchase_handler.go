package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type recipientReq struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

type purchaseOp func(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error)

func (h *handlers) runPurchaseOp(w http.ResponseWriter, r *http.Request, op purchaseOp) {
	id, err := uuidParam(r, "purchaseId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := op(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) getPurchase(w http.ResponseWriter, r *http.Request) {
	h.runPurchaseOp(w, r, h.purchases.Get)
}

func (h *handlers) listPurchases(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.purchases.ListByOwner(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) markDelivered(w http.ResponseWriter, r *http.Request) {
	owner := orders.NormalizeEmail(chi.URLParam(r, "userEmail"))
	if err := auth.AuthorizeOwner(caller(r), owner, auth.RoleAdmin); err != nil {
		h.fail(w, r, err)
		return
	}
	h.runPurchaseOp(w, r, h.purchases.MarkDelivered)
}

func (h *handlers) requestCancel(w http.ResponseWriter, r *http.Request) {
	h.runPurchaseOp(w, r, h.purchases.RequestCancel)
}

func (h *handlers) addRecipient(w http.ResponseWriter, r *http.Request) {
	h.setRecipient(w, r, false)
}

func (h *handlers) updateRecipient(w http.ResponseWriter, r *http.Request) {
	h.setRecipient(w, r, true)
}

func (h *handlers) setRecipient(w http.ResponseWriter, r *http.Request, update bool) {
	var req recipientReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d := orders.RecipientDetails{Name: req.Name, PhoneNumber: req.PhoneNumber, Address: req.Address}
	h.runPurchaseOp(w, r, func(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
		return h.purchases.SetRecipientDetails(ctx, c, id, d, update)
	})
}

// markShipped is a staff route; {userEmail} names the purchase owner.
func (h *handlers) markShipped(w http.ResponseWriter, r *http.Request) {
	owner := orders.NormalizeEmail(chi.URLParam(r, "userEmail"))
	h.runPurchaseOp(w, r, func(ctx context.Context, c auth.Caller, id uuid.UUID) (orders.Purchase, error) {
		return h.purchases.MarkShipped(ctx, c, id, owner)
	})
}

func (h *handlers) confirmCancel(w http.ResponseWriter, r *http.Request) {
	h.runPurchaseOp(w, r, h.purchases.ConfirmCancel)
}

func (h *handlers) cancelRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.purchases.ListCancelRequests(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
