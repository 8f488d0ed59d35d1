// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/tasks"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: timeout
// overrides from the environment and the background maintenance jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}

	deps.Scheduler.Add(tasks.ExpiredTokenCleanupJob(
		userstore.New(deps.MongoDatabase), logger, appCfg.TokenCleanupInterval))
	deps.Scheduler.Start()
	return nil
}
