package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(k orders.Kind) int {
	switch k {
	case orders.KindUnauthenticated:
		return http.StatusUnauthorized
	case orders.KindForbidden:
		return http.StatusForbidden
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindInvalidInput:
		return http.StatusBadRequest
	case orders.KindInsufficientStock, orders.KindInvalidState, orders.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the error taxonomy. Internal errors are logged and
// answered with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var e *orders.Error
	if errors.As(err, &e) {
		writeJSON(w, statusOf(e.Kind), errorBody{Code: e.Code, Error: e.Message})
		return
	}
	log.Error().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Error: "internal server error"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return orders.Reason(orders.ErrInvalidInput, "request body must be valid JSON")
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, orders.Reason(orders.ErrInvalidInput, "invalid "+name)
	}
	return id, nil
}
