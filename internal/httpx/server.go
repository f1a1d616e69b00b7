package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/purchase"
	"github.com/ariefcatur/go-marketplace-orders/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
)

type Deps struct {
	Log       zerolog.Logger
	Identity  IdentityResolver
	Idem      IdempotencyStore // optional
	Carts     *cart.Manager
	Checkouts *checkout.Processor
	Purchases *purchase.Tracker
	Reports   *report.Service

	RequestTimeout time.Duration
}

func NewRouter(d Deps) *chi.Mux {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), traceID)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := &handlers{log: d.Log, carts: d.Carts, checkouts: d.Checkouts, purchases: d.Purchases, reports: d.Reports}
	shoppers := []auth.Role{auth.RoleUser, auth.RoleAdmin, auth.RoleCSR}
	everyone := []auth.Role{auth.RoleUser, auth.RoleAdmin, auth.RoleCSR, auth.RoleVendor}

	r.Group(func(r chi.Router) {
		r.Use(authenticate(d.Identity, d.Log), idempotent(d.Idem, d.Log), storeDeadline(readTimeout, writeTimeout))

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireRoles(d.Log, shoppers...))
			r.Post("/add/{userEmail}", h.addItem)
			r.Put("/update-quantity-add/{userEmail}", h.increaseItem)
			r.Delete("/update-quantity-remove/{userEmail}", h.decreaseItem)
			r.Get("/view/{userEmail}", h.viewCart)
			r.Delete("/clear/{userEmail}", h.clearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(requireRoles(d.Log, everyone...))
			r.Post("/{userEmail}", h.createCheckout)
			r.Get("/all/{userEmail}", h.listCheckouts)
			r.Put("/approve-payment/{checkoutId}/{userEmail}", h.confirmPayment)
			r.Put("/cancel-payment/{checkoutId}/{userEmail}", h.cancelPayment)
		})

		r.Route("/purchase", func(r chi.Router) {
			r.Use(requireRoles(d.Log, everyone...))
			r.Post("/add-to-purchase/{checkoutId}/{userEmail}", h.convertToPurchase)
			r.Get("/all/{userEmail}", h.listPurchases)
			r.Get("/{purchaseId}", h.getPurchase)
			r.Put("/update-delivery-status/{purchaseId}/{userEmail}", h.markDelivered)
			r.Patch("/request-cancel-order/{purchaseId}", h.requestCancel)
			r.Put("/add-user-details/{purchaseId}", h.addRecipient)
			r.Put("/update-user-details/{purchaseId}", h.updateRecipient)
		})

		r.Route("/csr/purchase", func(r chi.Router) {
			r.Use(requireRoles(d.Log, auth.Staff...))
			r.Put("/update-shipping-status/{purchaseId}/{userEmail}", h.markShipped)
			r.Patch("/cancel-order/{purchaseId}", h.confirmCancel)
			r.Get("/cancel-requests", h.cancelRequests)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRoles(d.Log, auth.RoleAdmin))
			r.Get("/orders", h.allCheckouts)
			r.Get("/purchases", h.allPurchases)
			r.Get("/inventory", h.allInventory)
		})

		r.With(requireRoles(d.Log, auth.RoleVendor, auth.RoleAdmin)).
			Get("/vendor/inventory/{userEmail}", h.vendorInventory)
	})
	return r
}
