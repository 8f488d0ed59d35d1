// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TokenClearer removes expired one-time account tokens.
type TokenClearer interface {
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// ExpiredTokenCleanupJob unsets email-verification and password-reset tokens
// whose expiry has passed. Expired tokens are already rejected at use time;
// this keeps them from lingering on user documents.
func ExpiredTokenCleanupJob(users TokenClearer, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = time.Hour
	}
	return Job{
		Name:     "expired-token-cleanup",
		Interval: interval,
		Run: func(ctx context.Context) error {
			count, err := users.ClearExpiredTokens(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("cleared expired account tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
