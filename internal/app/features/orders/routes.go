// internal/app/features/orders/routes.go
package orders

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.Place)
	r.Get("/my-orders", h.MyOrders)
	r.Get("/{id}", h.Get)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))
		ar.Get("/", h.List)
		ar.Put("/{id}/status", h.UpdateStatus)
		ar.Put("/{id}/payment-status", h.UpdatePaymentStatus)
		ar.Delete("/{id}", h.Delete)
	})
	return r
}
