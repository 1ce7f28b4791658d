// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level and request limits. Everything specific to SafetyHub
// lives here and is passed to most lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: safetyhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Bearer identity from the identity provider (blank disables tokens)
	JWTSecret string
	JWTIssuer string

	// Role table (YAML); blank uses the built-in roles
	RolesFile string

	// Analytics
	MinMonthlyHours string // decimal; months below it are insufficient
	SeverityWeights string // e.g. "LTI=10,MTI=3,FAI=1,other=0,days_lost=1"

	// Report cache
	ReportTTL           time.Duration
	ReportLockTTL       time.Duration
	ReportSeriesMonths  int
	ReportGenerateLimit int           // requests per minute per user; 0 disables
	ReportWarmInterval  time.Duration // 0 disables the warmer

	// Redis (optional; cross-process single writer for reports)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Narrative generator (blank key selects the template generator)
	OpenAIAPIKey string
	OpenAIModel  string

	// Audit logging: all | db | log | off
	AuditLogScope  string
	AuditLogReport string
	AuditLogAuth   string
}
