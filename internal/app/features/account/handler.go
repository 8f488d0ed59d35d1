// internal/app/features/account/handler.go
package account

import (
	"fmt"
	"net/http"
	"time"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Config carries the account settings that come from app config.
type Config struct {
	SiteName     string
	BaseURL      string        // prefix for links in verification and reset mail
	VerifyExpiry time.Duration // email verification token lifetime
	ResetExpiry  time.Duration // password reset token lifetime
	BcryptCost   int           // 0 means bcrypt.DefaultCost
}

type Handler struct {
	Users        *userstore.Store
	Categories   *categorystore.Store
	Tokens       *auth.TokenManager
	Mailer       *mailer.Mailer
	AuditLog     *auditlog.Logger
	ErrLog       *httperr.ErrorLogger
	LoginLimiter *ratelimit.LoginLimiter
	Log          *zap.Logger
	cfg          Config
}

func NewHandler(
	db *mongo.Database,
	tokens *auth.TokenManager,
	mail *mailer.Mailer,
	audit *auditlog.Logger,
	errLog *httperr.ErrorLogger,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	if cfg.SiteName == "" {
		cfg.SiteName = "Storefront"
	}
	if cfg.VerifyExpiry <= 0 {
		cfg.VerifyExpiry = 24 * time.Hour
	}
	if cfg.ResetExpiry <= 0 {
		cfg.ResetExpiry = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Handler{
		Users:        userstore.New(db),
		Categories:   categorystore.New(db),
		Tokens:       tokens,
		Mailer:       mail,
		AuditLog:     audit,
		ErrLog:       errLog,
		LoginLimiter: ratelimit.NewLoginLimiter(),
		Log:          logger,
		cfg:          cfg,
	}
}

// authResponse is returned by register and login.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// currentUserID returns the signed-in user's id. RequireSignedIn guards every
// route that calls it, so a miss is answered with 401.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, "Not authenticated")
		return primitive.NilObjectID, false
	}
	return uid, true
}

func (h *Handler) issueToken(u *models.User) (string, error) {
	tok, err := h.Tokens.Issue(u.ID.Hex(), u.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

// formatExpiry renders a token lifetime for mail copy, e.g. "24 hours".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
