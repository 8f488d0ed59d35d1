// internal/app/features/reviews/routes.go
package reviews

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/reviews subrouter.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/product/{productId}", h.ForProduct)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/", h.Create)
		pr.Post("/{id}/helpful", h.Helpful)
		pr.Delete("/{id}", h.Delete)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))
		ar.Put("/{id}/approve", h.Approve)
		ar.Put("/{id}/unapprove", h.Unapprove)
	})
	return r
}

// AdminRoutes returns the moderation endpoints mounted under /api/admin/reviews.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/pending", h.Pending)
	return r
}
