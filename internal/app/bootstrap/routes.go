// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountfeature "github.com/dalemusser/storefront/internal/app/features/account"
	adminfeature "github.com/dalemusser/storefront/internal/app/features/admin"
	categoriesfeature "github.com/dalemusser/storefront/internal/app/features/categories"
	errorsfeature "github.com/dalemusser/storefront/internal/app/features/errors"
	healthfeature "github.com/dalemusser/storefront/internal/app/features/health"
	ordersfeature "github.com/dalemusser/storefront/internal/app/features/orders"
	productsfeature "github.com/dalemusser/storefront/internal/app/features/products"
	reviewsfeature "github.com/dalemusser/storefront/internal/app/features/reviews"
	"github.com/dalemusser/storefront/internal/app/services/checkout"
	"github.com/dalemusser/storefront/internal/app/services/ratings"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/keylock"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Shared services (token manager, mailer,
// audit logger, rating aggregator, checkout) are built once here and handed
// to the feature handlers mounted under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user on each request so role changes and deletions take
	// effect immediately.
	tokens.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	lockOpts := []keylock.Option{}
	if deps.Redis != nil {
		lockOpts = append(lockOpts, keylock.WithRedis(deps.Redis))
	}
	locks := keylock.New("storefront:rating:", logger, lockOpts...)
	agg := ratings.NewAggregator(db, locks, deps.Metrics, logger)
	reviewSvc := ratings.NewService(db, agg, ratings.Options{
		AutoApprove: appCfg.ReviewsAutoApprove,
		Events:      deps.Events,
	}, logger)
	checkoutSvc := checkout.New(db, deps.Events, deps.Metrics, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Loads the bearer user into context when a valid token is present.
	r.Use(tokens.LoadBearerUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	apiLimiter := ratelimit.New(ratelimit.APILimit, ratelimit.APIWindow)

	r.Route("/api", func(api chi.Router) {
		api.Use(ratelimit.Middleware(apiLimiter, "Too many requests from this IP, please try again later"))

		accountHandler := accountfeature.NewHandler(db, tokens, mail, auditLog, errLog, accountfeature.Config{
			SiteName:     appCfg.MailFromName,
			BaseURL:      appCfg.BaseURL,
			VerifyExpiry: appCfg.EmailVerifyExpiry,
			ResetExpiry:  appCfg.PasswordResetExpiry,
		}, logger)
		api.Mount("/auth", accountfeature.Routes(accountHandler))

		// Catalog
		categoriesHandler := categoriesfeature.NewHandler(db, auditLog, errLog, logger)
		api.Mount("/categories", categoriesfeature.Routes(categoriesHandler))

		productsHandler := productsfeature.NewHandler(db, auditLog, errLog, logger)
		api.Mount("/products", productsfeature.Routes(productsHandler))

		// Reviews feed product ratings
		reviewsHandler := reviewsfeature.NewHandler(db, reviewSvc, auditLog, errLog, logger)
		api.Mount("/reviews", reviewsfeature.Routes(reviewsHandler))

		ordersHandler := ordersfeature.NewHandler(db, checkoutSvc, deps.Events, auditLog, errLog,
			appCfg.OrderStrictTransitions, logger)
		api.Mount("/orders", ordersfeature.Routes(ordersHandler))

		// Admin dashboard and moderation
		adminHandler := adminfeature.NewHandler(db, errLog, logger)
		api.Mount("/admin/reviews", reviewsfeature.AdminRoutes(reviewsHandler))
		api.Mount("/admin", adminfeature.Routes(adminHandler))
	})

	return r, nil
}
