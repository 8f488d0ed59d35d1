// internal/app/features/account/routes.go
package account

import (
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/auth subrouter. Login throttling happens inside
// the handler because it keys on both IP and email.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	passwordLimiter := ratelimit.New(ratelimit.PasswordLimit, ratelimit.PasswordWindow)

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/verify-email/{token}", h.VerifyEmail)
	r.With(ratelimit.Middleware(passwordLimiter, "Too many password reset attempts, please try again later")).
		Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.Me)
		pr.Put("/profile", h.UpdateProfile)
		pr.Get("/addresses", h.ListAddresses)
		pr.Post("/addresses", h.AddAddress)
		pr.Put("/addresses/{id}/default", h.SetDefaultAddress)
		pr.Delete("/addresses/{id}", h.DeleteAddress)
		pr.Put("/favorite-categories", h.SetFavoriteCategories)
	})
	return r
}
