// internal/app/features/account/auth.go
package account

import (
	"context"
	"errors"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// invalidCredentials is the single message for both unknown email and wrong
// password, so the response does not reveal which accounts exist.
const invalidCredentials = "Invalid email or password"

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/register                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type registerInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100" label:"Name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required,min=6,max=72" label:"Password"`
	Phone    string `json:"phone" validate:"omitempty,max=30" label:"Phone"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cfg.BcryptCost)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Role:         models.RoleUser,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Registered(ctx, r, u.ID, u.Email)

	// A lost verification mail must not undo the registration; the user can
	// still sign in and ask again later.
	if raw, err := h.Users.IssueVerificationToken(ctx, u.ID, h.cfg.VerifyExpiry); err != nil {
		h.Log.Error("issue verification token failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	} else {
		email := mailer.BuildVerificationEmail(u.Email, mailer.LinkEmailData{
			SiteName:  h.cfg.SiteName,
			Name:      u.Name,
			Link:      h.cfg.BaseURL + "/verify-email/" + raw,
			ExpiresIn: formatExpiry(h.cfg.VerifyExpiry),
		})
		if err := h.Mailer.Send(email); err != nil {
			h.Log.Error("verification mail failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}

	tok, err := h.issueToken(&u)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, authResponse{Token: tok, User: &u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, msg := h.LoginLimiter.Check(r, in.Email); !ok {
		h.AuditLog.LoginFailedRateLimit(ctx, r, in.Email)
		httperr.Message(w, http.StatusTooManyRequests, httperr.CodeRateLimited, msg)
		return
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, in.Email)
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, invalidCredentials)
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, invalidCredentials)
		return
	}

	h.LoginLimiter.ResetEmail(in.Email)
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	tok, err := h.issueToken(u)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, authResponse{Token: tok, User: u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/verify-email/{token}                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.VerifyEmail(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.EmailVerified(ctx, r, u.ID)
	httperr.JSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/forgot-password                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type forgotInput struct {
	Email string `json:"email" validate:"required,email" label:"Email"`
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, raw, err := h.Users.IssueResetToken(ctx, in.Email, h.cfg.ResetExpiry)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)

	email := mailer.BuildPasswordResetEmail(u.Email, mailer.LinkEmailData{
		SiteName:  h.cfg.SiteName,
		Name:      u.Name,
		Link:      h.cfg.BaseURL + "/reset-password/" + raw,
		ExpiresIn: formatExpiry(h.cfg.ResetExpiry),
	})
	if err := h.Mailer.Send(email); err != nil {
		h.ErrLog.Write(w, r, err, zap.String("user_id", u.ID.Hex()))
		return
	}
	httperr.JSON(w, http.StatusOK, messageResponse{Message: "Password reset email sent"})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/reset-password                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type resetInput struct {
	Token    string `json:"token" validate:"required" label:"Token"`
	Password string `json:"password" validate:"required,min=6,max=72" label:"Password"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cfg.BcryptCost)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.ResetPassword(ctx, in.Token, string(hash))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.PasswordReset(ctx, r, u.ID)
	h.LoginLimiter.ResetEmail(u.Email)
	httperr.JSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}
