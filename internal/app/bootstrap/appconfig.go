// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, log level and
// request limits stay in CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token configuration
	JWTSecret string        // HS256 signing secret (must be strong in production)
	JWTTTL    time.Duration // token lifetime (default 7 days)

	// Optional backends. Empty disables them.
	RedisURL     string // enables the cross-instance rating lease
	AMQPURL      string // enables domain event publishing
	AMQPExchange string

	// Email/SMTP configuration. An empty host logs mail instead of sending it.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for email links (verification, password reset)
	BaseURL string

	// CORS
	CORSOrigins []string

	// Store behaviour
	ReviewsAutoApprove     bool
	OrderStrictTransitions bool

	// One-time token lifetimes and their cleanup cadence
	EmailVerifyExpiry    time.Duration
	PasswordResetExpiry  time.Duration
	TokenCleanupInterval time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}
