package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/purchase"
	"github.com/ariefcatur/go-marketplace-orders/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type handlers struct {
	log       zerolog.Logger
	carts     *cart.Manager
	checkouts *checkout.Processor
	purchases *purchase.Tracker
	reports   *report.Service
}

func caller(r *http.Request) auth.Caller {
	c, _ := auth.FromContext(r.Context())
	return c
}

// pathOwner returns the {userEmail} segment, which must name the caller.
func pathOwner(r *http.Request) (string, error) {
	email := orders.NormalizeEmail(chi.URLParam(r, "userEmail"))
	if email == "" {
		return "", orders.Reason(orders.ErrInvalidInput, "user email is required")
	}
	if !caller(r).Owns(email) {
		return "", orders.ErrForbidden
	}
	return email, nil
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.log, err)
}

func (h *handlers) allCheckouts(w http.ResponseWriter, r *http.Request) {
	list, err := h.checkouts.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) allPurchases(w http.ResponseWriter, r *http.Request) {
	list, err := h.purchases.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) allInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.reports.AllInventory(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// vendorInventory lets a vendor read their own inventory and an admin read anyone's.
func (h *handlers) vendorInventory(w http.ResponseWriter, r *http.Request) {
	owner := orders.NormalizeEmail(chi.URLParam(r, "userEmail"))
	if err := auth.AuthorizeOwner(caller(r), owner, auth.RoleAdmin); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.reports.VendorInventory(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
