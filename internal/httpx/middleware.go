package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type IdentityResolver interface {
	ResolveCaller(ctx context.Context, token string) (auth.Caller, error)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) (*redisx.StoredResponse, error)
	Complete(ctx context.Context, scope, key string, resp redisx.StoredResponse) error
	Abort(ctx context.Context, scope, key string) error
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// requestLogger logs every request once it completes and turns panics into 500s.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			// the auth middleware runs further in, so the caller is read back from here
			holder := &callerHolder{}
			r = r.WithContext(context.WithValue(r.Context(), holderKey{}, holder))

			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("request_id", middleware.GetReqID(r.Context())).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Str("panic", fmt.Sprint(p)).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					if rec.status == 0 {
						writeJSON(rec, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Error: "internal server error"})
					}
				}
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("caller", holder.email).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Int("status", rec.Status()).
					Dur("latency", time.Since(start)).
					Msg("request completed")
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

type holderKey struct{}

type callerHolder struct{ email string }

// traceID copies the chi request id into the context key events read their trace id from.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// storeDeadline bounds the store calls a request makes: reads get less time than writes.
func storeDeadline(read, write time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := write
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				d = read
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(id IdentityResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := auth.ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			c, err := id.ResolveCaller(r.Context(), tok)
			if err != nil {
				log.Debug().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("token rejected")
				writeError(w, r, log, orders.ErrUnauthenticated)
				return
			}
			if h, ok := r.Context().Value(holderKey{}).(*callerHolder); ok {
				h.email = c.Email
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), c)))
		})
	}
}

// requireRoles admits callers holding at least one of roles.
func requireRoles(log zerolog.Logger, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, _ := auth.FromContext(r.Context())
			if !c.HasAny(roles...) {
				writeError(w, r, log, orders.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type captureWriter struct {
	*statusRecorder
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.statusRecorder.Write(b)
}

// idempotent replays the first response of a mutation sent again with the same
// Idempotency-Key. Keys are scoped to the caller, method and path, and the
// body must match the first request's. Server errors release the key so the
// client can retry.
func idempotent(store IdempotencyStore, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if store == nil || key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			c, _ := auth.FromContext(r.Context())
			scope := orders.NormalizeEmail(c.Email) + ":" + r.Method + ":" + r.URL.Path
			fp, err := fingerprintBody(r)
			if err != nil {
				writeError(w, r, log, orders.Reason(orders.ErrInvalidInput, "could not read request body"))
				return
			}

			stored, err := store.Begin(r.Context(), scope, key)
			switch {
			case errors.Is(err, redisx.ErrInProgress):
				writeError(w, r, log, orders.Reason(orders.ErrConflict, "a request with this idempotency key is still in progress"))
				return
			case err != nil:
				// fail open
				log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			case stored != nil && stored.Fingerprint != fp:
				writeError(w, r, log, orders.Reason(orders.ErrConflict, "idempotency key was already used with a different request body"))
				return
			case stored != nil:
				w.Header().Set("Content-Type", stored.ContentType)
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			cw := &captureWriter{statusRecorder: &statusRecorder{ResponseWriter: w}}
			completed := false
			defer func() {
				if completed {
					return
				}
				// panicked or failed before a response could be stored
				_ = store.Abort(context.WithoutCancel(r.Context()), scope, key)
			}()
			next.ServeHTTP(cw, r)

			ctx := context.WithoutCancel(r.Context())
			if cw.Status() >= http.StatusInternalServerError {
				return
			}
			err = store.Complete(ctx, scope, key, redisx.StoredResponse{
				Status:      cw.Status(),
				ContentType: cw.Header().Get("Content-Type"),
				Body:        cw.body.Bytes(),
				Fingerprint: fp,
			})
			if err != nil {
				log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("store idempotent response")
				return
			}
			completed = true
		})
	}
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		return strconv.FormatUint(xxhash.Sum64(nil), 16), nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	return strconv.FormatUint(xxhash.Sum64(b), 16), nil
}
