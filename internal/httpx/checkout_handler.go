package httpx

import "net/http"

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	co, err := h.checkouts.CreateCheckout(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, co)
}

func (h *handlers) listCheckouts(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.checkouts.List(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := uuidParam(r, "checkoutId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	co, err := h.checkouts.ConfirmPayment(r.Context(), id, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, co)
}

func (h *handlers) cancelPayment(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := uuidParam(r, "checkoutId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	co, err := h.checkouts.CancelPayment(r.Context(), id, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, co)
}

func (h *handlers) convertToPurchase(w http.ResponseWriter, r *http.Request) {
	owner, err := pathOwner(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := uuidParam(r, "checkoutId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.checkouts.ConvertToPurchase(r.Context(), id, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
