package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/bootstrap"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	verbose    bool
	employerID string
)

var rootCmd = &cobra.Command{
	Use:   "safetyhubctl",
	Short: "Run SafetyHub analytics with staff scope",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Overload(); err != nil {
			log.Println("Error loading .env file, skipping")
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	rootCmd.PersistentFlags().StringVarP(&employerID, "employer", "e", "", "employer id (blank means all employers)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalln(err.Error())
	}
}

// env reads SAFETYHUB_<NAME>, falling back to the server's default.
func env(name string) string {
	if v, ok := os.LookupEnv("SAFETYHUB_" + strings.ToUpper(name)); ok {
		return v
	}
	return bootstrap.KeyDefault(name)
}

func envInt(name string) int {
	n, err := strconv.Atoi(env(name))
	if err != nil {
		return 0
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(env(name))
	if err != nil {
		return def
	}
	return d
}

// appConfig builds the subset of AppConfig the CLI needs from the environment.
func appConfig() bootstrap.AppConfig {
	return bootstrap.AppConfig{
		MongoURI:           env("mongo_uri"),
		MongoDatabase:      env("mongo_database"),
		MongoMaxPoolSize:   4,
		MongoMinPoolSize:   0,
		SessionKey:         env("session_key"),
		JWTSecret:          env("jwt_secret"),
		JWTIssuer:          env("jwt_issuer"),
		RolesFile:          env("roles_file"),
		MinMonthlyHours:    env("min_monthly_hours"),
		SeverityWeights:    env("severity_weights"),
		ReportTTL:          envDuration("report_ttl", 24*time.Hour),
		ReportLockTTL:      envDuration("report_lock_ttl", 2*time.Minute),
		ReportSeriesMonths: envInt("report_series_months"),
		RedisAddr:          env("redis_addr"),
		RedisPassword:      env("redis_password"),
		RedisDB:            envInt("redis_db"),
		OpenAIAPIKey:       env("openai_api_key"),
		OpenAIModel:        env("openai_model"),
		AuditLogScope:      env("audit_log_scope"),
		AuditLogReport:     env("audit_log_report"),
		AuditLogAuth:       env("audit_log_auth"),
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withServices connects, builds the analytics services and runs fn.
func withServices(ctx context.Context, fn func(ctx context.Context, svc *bootstrap.Services) error) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	coreCfg := &config.CoreConfig{Env: "dev"}
	appCfg := appConfig()
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		return err
	}

	deps, err := bootstrap.ConnectDB(ctx, coreCfg, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = bootstrap.Shutdown(sctx, coreCfg, appCfg, deps, logger)
	}()

	svc, err := bootstrap.NewServices(appCfg, deps, logger)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

// staffScope resolves --employer with the system role.
func staffScope() (scopepolicy.Decision, error) {
	id, err := inputval.OptionalObjectID("employer", employerID)
	if err != nil {
		return scopepolicy.Decision{}, err
	}
	d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, id, primitive.NilObjectID)
	return d, d.Err()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
