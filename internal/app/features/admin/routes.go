// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/admin subrouter. Everything here is admin-only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/stats", h.Stats)
	r.Get("/orders/recent", h.RecentOrders)
	r.Get("/products/popular", h.PopularProducts)
	r.Get("/audit", h.AuditLog)
	return r
}
