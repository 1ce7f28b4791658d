// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/safetyhub/internal/app/analytics/ranking"
	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/reportcache"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	employerstore "github.com/dalemusser/safetyhub/internal/app/store/employers"
	"github.com/dalemusser/safetyhub/internal/app/store/queries/scopedrows"
	reportstore "github.com/dalemusser/safetyhub/internal/app/store/reports"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/narrative"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Services bundles the analytics components shared by the HTTP handler
// and the ops CLI.
type Services struct {
	Roles      *authz.Table
	Audit      *auditlog.Logger
	Employers  *employerstore.Store
	Aggregator *rates.Aggregator
	Series     *series.Builder
	Ranking    *ranking.Engine
	Reports    *reportcache.Cache
}

// NewServices builds the analytics pipeline over deps.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*Services, error) {
	db := deps.SafetyHubMongoDatabase

	roles, err := authz.LoadTable(appCfg.RolesFile)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	policy, err := ratesPolicy(appCfg)
	if err != nil {
		return nil, err
	}
	weights, err := ranking.ParseWeights(appCfg.SeverityWeights)
	if err != nil {
		return nil, fmt.Errorf("severity_weights: %w", err)
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Scope:  appCfg.AuditLogScope,
		Report: appCfg.AuditLogReport,
		Auth:   appCfg.AuditLogAuth,
	})

	agg := rates.NewAggregator(scopedrows.New(db), policy, logger)
	builder := series.NewBuilder(agg, logger)
	employers := employerstore.New(db)

	var gen narrative.Generator = narrative.Template{}
	if appCfg.OpenAIAPIKey != "" {
		gen = narrative.NewOpenAI(appCfg.OpenAIAPIKey, appCfg.OpenAIModel)
	}

	opts := []reportcache.Option{
		reportcache.WithEmployerNames(func(ctx context.Context, id primitive.ObjectID) (string, error) {
			emp, err := employers.GetByID(ctx, id)
			if err != nil {
				return "", err
			}
			return emp.Name, nil
		}),
		reportcache.WithAudit(auditLog),
	}
	if deps.Redis != nil {
		opts = append(opts, reportcache.WithLocker(reportcache.NewRedisLocker(deps.Redis, "")))
	}
	cache := reportcache.New(reportstore.New(db), agg, builder, gen, logger, reportcache.Config{
		TTL:          appCfg.ReportTTL,
		LockTTL:      appCfg.ReportLockTTL,
		SeriesMonths: appCfg.ReportSeriesMonths,
	}, opts...)

	logger.Info("analytics services ready",
		zap.String("generator", gen.Name()),
		zap.Bool("redis_lock", deps.Redis != nil),
		zap.String("min_monthly_hours", policy.MinMonthlyHours.String()))

	return &Services{
		Roles:      roles,
		Audit:      auditLog,
		Employers:  employers,
		Aggregator: agg,
		Series:     builder,
		Ranking:    ranking.NewEngine(agg, weights, logger),
		Reports:    cache,
	}, nil
}

// Resolver returns a scope resolver that reads employer context from
// ctxStore, which may be nil.
func (s *Services) Resolver(ctxStore scopepolicy.ContextReader, logger *zap.Logger) *scopepolicy.Resolver {
	return scopepolicy.NewResolver(s.Roles, ctxStore, s.Audit, logger)
}
