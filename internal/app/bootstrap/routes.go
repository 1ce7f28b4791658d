// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	analyticsfeature "github.com/dalemusser/safetyhub/internal/app/features/analytics"
	auditlogfeature "github.com/dalemusser/safetyhub/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/safetyhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/safetyhub/internal/app/features/health"
	logoutfeature "github.com/dalemusser/safetyhub/internal/app/features/logout"
	reportsfeature "github.com/dalemusser/safetyhub/internal/app/features/reports"
	scopefeature "github.com/dalemusser/safetyhub/internal/app/features/scope"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/empcontext"
	"github.com/dalemusser/safetyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"github.com/dalemusser/safetyhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// SafetyHub applies session (and bearer token) middleware, then mounts the
// JSON feature routers: health, logout, scope and employer context,
// analytics, narrative reports and the audit trail. The report warmer is
// started here when enabled and stopped by Shutdown.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Bearer tokens from the identity provider, when configured.
	if appCfg.JWTSecret != "" {
		verifier, err := auth.NewTokenVerifier(appCfg.JWTSecret, appCfg.JWTIssuer)
		if err != nil {
			logger.Error("token verifier init failed", zap.Error(err))
			return nil, err
		}
		sessionMgr.SetTokenVerifier(verifier)
	}

	svc, err := NewServices(appCfg, deps, logger)
	if err != nil {
		logger.Error("services init failed", zap.Error(err))
		return nil, err
	}

	ctxStore := empcontext.New(sessionMgr.Store(), sessionMgr.Name(), logger)
	resolver := svc.Resolver(ctxStore, logger)

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if signed in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.SafetyHubMongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.Audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Effective scope and staff employer context
	// These feature routers own top-level paths, so they are attached per
	// path rather than mounted under a prefix.
	scopeHandler := scopefeature.NewHandler(deps.SafetyHubMongoDatabase, svc.Roles, resolver, ctxStore, svc.Audit, logger)
	scopeRouter := scopefeature.Routes(scopeHandler, sessionMgr)
	for _, p := range []string{"/scope", "/context"} {
		r.Handle(p, scopeRouter)
	}

	// Rates, series and rankings
	analyticsHandler := analyticsfeature.NewHandler(resolver, svc.Aggregator, svc.Series, svc.Ranking, logger)
	analyticsRouter := analyticsfeature.Routes(analyticsHandler, sessionMgr)
	for _, p := range []string{"/metrics", "/series", "/rankings"} {
		r.Handle(p, analyticsRouter)
	}

	// Narrative reports, rate limited per user since generation is expensive.
	var limiter *ratelimit.Limiter
	if appCfg.ReportGenerateLimit > 0 {
		limiter = ratelimit.New(appCfg.ReportGenerateLimit, time.Minute)
	}
	reportsHandler := reportsfeature.NewHandler(resolver, svc.Reports, logger)
	r.Mount("/reports", reportsfeature.Routes(reportsHandler, sessionMgr, limiter))

	// Audit trail, limited to the caller's scope
	auditHandler := auditlogfeature.NewHandler(audit.New(deps.SafetyHubMongoDatabase), resolver, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	var warmer *workers.ReportWarmer
	if appCfg.ReportWarmInterval > 0 {
		warmer = workers.NewReportWarmer(svc.Employers, svc.Reports, logger, appCfg.ReportWarmInterval, timeouts.Generate())
		warmer.Start()
	}

	if deps.background != nil {
		deps.background.limiter = limiter
		deps.background.warmer = warmer
	}

	return r, nil
}
