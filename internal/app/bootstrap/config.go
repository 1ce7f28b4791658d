// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/analytics/ranking"
	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for SafetyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SAFETYHUB_MONGO_URI, SAFETYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "safety_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "safetyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},

	// Identity provider
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret for bearer tokens (blank disables bearer auth)"},
	{Name: "jwt_issuer", Default: "", Desc: "Required iss claim for bearer tokens (blank accepts any)"},
	{Name: "roles_file", Default: "", Desc: "YAML role table (blank uses built-in roles)"},

	// Analytics
	{Name: "min_monthly_hours", Default: "1000", Desc: "Hours below which a month's rates are insufficient"},
	{Name: "severity_weights", Default: "LTI=10,MTI=3,FAI=1,other=0,days_lost=1", Desc: "Severity score weights for site rankings"},

	// Report cache
	{Name: "report_ttl", Default: "24h", Desc: "How long a generated narrative is served before regeneration"},
	{Name: "report_lock_ttl", Default: "2m", Desc: "Lease on the cross-process report writer lock"},
	{Name: "report_series_months", Default: 12, Desc: "Months of history given to the narrative generator"},
	{Name: "report_generate_limit", Default: 6, Desc: "Narrative requests per minute per user (0 disables)"},
	{Name: "report_warm_interval", Default: "0", Desc: "Interval for pre-generating last month's narratives (0 disables)"},

	// Redis
	{Name: "redis_addr", Default: "", Desc: "Redis address for the report lock (blank runs single-process)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Narrative generator
	{Name: "openai_api_key", Default: "", Desc: "OpenAI API key (blank uses the template generator)"},
	{Name: "openai_model", Default: "gpt-4o-mini", Desc: "OpenAI model for narratives"},

	// Audit logging settings
	{Name: "audit_log_scope", Default: "all", Desc: "Scope/context event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_report", Default: "all", Desc: "Report generation event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all', 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SAFETYHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SAFETYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		// Identity
		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		RolesFile: appValues.String("roles_file"),

		// Analytics
		MinMonthlyHours: appValues.String("min_monthly_hours"),
		SeverityWeights: appValues.String("severity_weights"),

		// Reports
		ReportTTL:           appValues.Duration("report_ttl", 24*time.Hour),
		ReportLockTTL:       appValues.Duration("report_lock_ttl", 2*time.Minute),
		ReportSeriesMonths:  appValues.Int("report_series_months"),
		ReportGenerateLimit: appValues.Int("report_generate_limit"),
		ReportWarmInterval:  appValues.Duration("report_warm_interval", 0),

		// Redis
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		// Narrative generator
		OpenAIAPIKey: appValues.String("openai_api_key"),
		OpenAIModel:  appValues.String("openai_model"),

		// Audit logging
		AuditLogScope:  appValues.String("audit_log_scope"),
		AuditLogReport: appValues.String("audit_log_report"),
		AuditLogAuth:   appValues.String("audit_log_auth"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// SafetyHub validates the MongoDB URI format, the analytics thresholds,
// the report cache settings and the role table before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := ratesPolicy(appCfg); err != nil {
		return err
	}
	if _, err := ranking.ParseWeights(appCfg.SeverityWeights); err != nil {
		return fmt.Errorf("severity_weights: %w", err)
	}
	if appCfg.ReportTTL <= 0 {
		return fmt.Errorf("report_ttl must be positive, got %s", appCfg.ReportTTL)
	}
	if appCfg.ReportSeriesMonths < 1 || appCfg.ReportSeriesMonths > period.MaxWindowMonths {
		return fmt.Errorf("report_series_months must be between 1 and %d, got %d", period.MaxWindowMonths, appCfg.ReportSeriesMonths)
	}
	if appCfg.ReportGenerateLimit < 0 {
		return fmt.Errorf("report_generate_limit must not be negative")
	}
	if appCfg.ReportWarmInterval < 0 {
		return fmt.Errorf("report_warm_interval must not be negative")
	}
	for key, v := range map[string]string{
		"audit_log_scope":  appCfg.AuditLogScope,
		"audit_log_report": appCfg.AuditLogReport,
		"audit_log_auth":   appCfg.AuditLogAuth,
	} {
		switch v {
		case "", "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be all, db, log or off, got %q", key, v)
		}
	}
	if _, err := authz.LoadTable(appCfg.RolesFile); err != nil {
		return fmt.Errorf("roles_file: %w", err)
	}
	if appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" && coreCfg != nil && coreCfg.Env == "prod" {
		return fmt.Errorf("session_key must be set in production")
	}
	return nil
}

// ratesPolicy parses min_monthly_hours.
func ratesPolicy(appCfg AppConfig) (rates.Policy, error) {
	raw := appCfg.MinMonthlyHours
	if raw == "" {
		return rates.DefaultPolicy(), nil
	}
	minHours, err := decimal.NewFromString(raw)
	if err != nil {
		return rates.Policy{}, fmt.Errorf("min_monthly_hours %q is not a number", raw)
	}
	if minHours.IsNegative() {
		return rates.Policy{}, fmt.Errorf("min_monthly_hours must not be negative")
	}
	return rates.Policy{MinMonthlyHours: minHours}, nil
}

// KeyDefault returns the default for an app config key as a string, or ""
// for an unknown key. The ops CLI uses it to mirror the server's defaults.
func KeyDefault(name string) string {
	for _, k := range appConfigKeys {
		if k.Name == name {
			return fmt.Sprint(k.Default)
		}
	}
	return ""
}
