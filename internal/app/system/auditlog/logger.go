// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes for a category of audit events.
const (
	ModeAll = "all" // store and log
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config picks a mode per event category. Empty means ModeAll.
type Config struct {
	Auth  string
	Admin string
}

// Logger writes audit events to the audit store, the zap log, or both,
// depending on the event's category. A nil *Logger discards everything.
type Logger struct {
	store *audit.Store
	log   *zap.Logger
	cfg   Config
}

func New(store *audit.Store, log *zap.Logger, cfg Config) *Logger {
	return &Logger{store: store, log: log, cfg: cfg}
}

func (l *Logger) mode(category string) string {
	var m string
	switch category {
	case audit.CategoryAuth:
		m = l.cfg.Auth
	case audit.CategoryAdmin:
		m = l.cfg.Admin
	}
	if m == "" {
		return ModeAll
	}
	return m
}

func zapFields(e audit.Event) []zap.Field {
	fields := make([]zap.Field, 0, 8+len(e.Details))
	fields = append(fields,
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	)
	ids := []struct {
		key string
		id  *primitive.ObjectID
	}{{"user_id", e.UserID}, {"actor_id", e.ActorID}, {"target_id", e.TargetID}}
	for _, f := range ids {
		if f.id != nil {
			fields = append(fields, zap.String(f.key, f.id.Hex()))
		}
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	return fields
}

// Log routes e according to its category's mode. Store failures are logged
// rather than returned.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	m := l.mode(e.Category)
	if m == ModeOff {
		return
	}
	if m == ModeAll || m == ModeLog {
		if e.Success {
			l.log.Info("audit event", zapFields(e)...)
		} else {
			l.log.Warn("audit event", zapFields(e)...)
		}
	}
	if m == ModeAll || m == ModeDB {
		if err := l.store.Log(ctx, e); err != nil {
			l.log.Error("failed to store audit event", zap.Error(err), zap.String("event_type", e.EventType))
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID, true)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedUserNotFound logs a failed login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedUserNotFound, nil, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginFailedWrongPassword, &userID, false)
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a login rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, false)
	e.FailureReason = "rate limit exceeded"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventRegistered, &userID, true)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// EmailVerified logs a completed email verification.
func (l *Logger) EmailVerified(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventEmailVerified, &userID, true))
}

// PasswordResetRequested logs issuance of a reset token.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordResetRequested, &userID, true))
}

// PasswordReset logs a completed password reset.
func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordReset, &userID, true))
}

// Admin logs an admin action on a catalog or order entity. actorIDStr is the
// hex id from the session user; an unparsable id is recorded without an actor.
func (l *Logger) Admin(ctx context.Context, r *http.Request, actorIDStr, eventType string, targetID primitive.ObjectID, details map[string]string) {
	var actorID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(actorIDStr); err == nil {
		actorID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   actorID,
		TargetID:  &targetID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// OrderStatusChanged logs an admin order status update.
func (l *Logger) OrderStatusChanged(ctx context.Context, r *http.Request, actorIDStr string, orderID primitive.ObjectID, from, to string) {
	l.Admin(ctx, r, actorIDStr, audit.EventOrderStatusChanged, orderID, map[string]string{
		"from": from,
		"to":   to,
	})
}

// ReviewModerated logs an approval change on a review.
func (l *Logger) ReviewModerated(ctx context.Context, r *http.Request, actorIDStr string, reviewID, productID primitive.ObjectID, approved bool) {
	eventType := audit.EventReviewUnapproved
	if approved {
		eventType = audit.EventReviewApproved
	}
	l.Admin(ctx, r, actorIDStr, eventType, reviewID, map[string]string{"product_id": productID.Hex()})
}
