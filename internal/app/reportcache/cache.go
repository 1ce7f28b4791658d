// Package reportcache is the only writer of generated narrative reports.
//
// GetOrGenerate returns a stored report while it is younger than the TTL.
// Otherwise exactly one caller per (employer, month) generates a new one:
// concurrent callers in this process share one generation through
// singleflight, and callers in other processes are excluded by an optional
// Locker and read the stored result once the holder has written it.
package reportcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	reportstore "github.com/dalemusser/safetyhub/internal/app/store/reports"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/safetyhub/internal/app/system/narrative"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/app/system/retry"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Store persists generated reports. Get returns reportstore.ErrNotFound
// when nothing is stored.
type Store interface {
	Get(ctx context.Context, employerID primitive.ObjectID, month string) (models.GeneratedReport, error)
	Save(ctx context.Context, employerID primitive.ObjectID, month string, rev models.ReportRevision) (models.GeneratedReport, error)
}

// EmployerNames resolves a display name for the narrative. Failures are
// logged and the id is used instead.
type EmployerNames func(ctx context.Context, id primitive.ObjectID) (string, error)

// Report is what callers receive.
type Report struct {
	EmployerID  primitive.ObjectID `json:"employer_id"`
	Month       period.Month       `json:"month"`
	Text        string             `json:"text"`
	Cached      bool               `json:"cached"`
	GeneratedAt time.Time          `json:"generated_at"`
	Generator   string             `json:"generator"`
}

// Config tunes the cache.
type Config struct {
	TTL time.Duration
	// LockTTL bounds how long a crashed holder can block other processes.
	LockTTL time.Duration
	// WaitPoll is how often a lock loser re-reads the store.
	WaitPoll time.Duration
	// SeriesMonths is the trailing window given to the generator.
	SeriesMonths int
}

// DefaultConfig returns a 24h TTL and a 12-month trailing series.
func DefaultConfig() Config {
	return Config{
		TTL:          24 * time.Hour,
		LockTTL:      2 * time.Minute,
		WaitPoll:     250 * time.Millisecond,
		SeriesMonths: 12,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	if c.WaitPoll <= 0 {
		c.WaitPoll = d.WaitPoll
	}
	if c.SeriesMonths <= 0 {
		c.SeriesMonths = d.SeriesMonths
	}
	if c.SeriesMonths > period.MaxWindowMonths {
		c.SeriesMonths = period.MaxWindowMonths
	}
	return c
}

// Option configures a Cache.
type Option func(*Cache)

// WithLocker adds cross-process exclusion.
func WithLocker(l Locker) Option { return func(c *Cache) { c.locker = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithEmployerNames sets the name lookup used in narratives.
func WithEmployerNames(fn EmployerNames) Option { return func(c *Cache) { c.names = fn } }

// WithAudit records each generation.
func WithAudit(a *auditlog.Logger) Option { return func(c *Cache) { c.audit = a } }

// WithRetry overrides the store and generator retry policies.
func WithRetry(store, generate retry.Policy) Option {
	return func(c *Cache) {
		c.storeRetry = store
		c.genRetry = generate
	}
}

// Cache coordinates report reads and generation.
type Cache struct {
	cfg        Config
	store      Store
	agg        *rates.Aggregator
	series     *series.Builder
	gen        narrative.Generator
	locker     Locker
	names      EmployerNames
	audit      *auditlog.Logger
	log        *zap.Logger
	now        func() time.Time
	storeRetry retry.Policy
	genRetry   retry.Policy
	group      singleflight.Group
}

// New builds a Cache.
func New(store Store, agg *rates.Aggregator, builder *series.Builder, gen narrative.Generator, logger *zap.Logger, cfg Config, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		cfg:        cfg.withDefaults(),
		store:      store,
		agg:        agg,
		series:     builder,
		gen:        gen,
		locker:     localLocker{},
		log:        logger,
		now:        time.Now,
		storeRetry: retry.DefaultPolicy().WithAttemptTimeout(timeouts.Read()),
		genRetry:   retry.Policy{MaxTries: 2, InitialInterval: time.Second, MaxInterval: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Cache) Config() Config { return c.cfg }

func cacheKey(employerID primitive.ObjectID, month period.Month) string {
	return employerID.Hex() + ":" + month.String()
}

// lookup returns the stored report when it is still fresh.
func (c *Cache) lookup(ctx context.Context, employerID primitive.ObjectID, month period.Month) (Report, bool, error) {
	rep, err := retry.Do(ctx, c.storeRetry, c.log, "reports.get", func(ctx context.Context) (*models.GeneratedReport, error) {
		r, err := c.store.Get(ctx, employerID, month.String())
		if errors.Is(err, reportstore.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil || rep == nil {
		return Report{}, false, err
	}
	if c.now().Sub(rep.GeneratedAt) >= c.cfg.TTL {
		return Report{}, false, nil
	}
	return Report{
		EmployerID:  employerID,
		Month:       month,
		Text:        rep.Text,
		Cached:      true,
		GeneratedAt: rep.GeneratedAt,
		Generator:   rep.Generator,
	}, true, nil
}

// GetOrGenerate returns the report for the decision's employer and month.
//
// The generation itself is detached from ctx: a caller that gives up stops
// waiting, but the write completes for whoever asks next.
func (c *Cache) GetOrGenerate(ctx context.Context, d scopepolicy.Decision, month period.Month) (Report, error) {
	empID, err := d.RequireEmployer()
	if err != nil {
		return Report{}, err
	}
	if month.IsZero() {
		return Report{}, fmt.Errorf("%w: month is required", apperr.ErrInvalidInput)
	}

	if rep, ok, err := c.lookup(ctx, empID, month); err != nil {
		return Report{}, err
	} else if ok {
		return rep, nil
	}

	key := cacheKey(empID, month)
	ch := c.group.DoChan(key, func() (any, error) {
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Generate())
		defer cancel()
		return c.generate(gctx, d, empID, month)
	})

	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

func (c *Cache) generate(ctx context.Context, d scopepolicy.Decision, empID primitive.ObjectID, month period.Month) (Report, error) {
	key := cacheKey(empID, month)
	release, ok, err := c.locker.TryAcquire(ctx, key, c.cfg.LockTTL)
	if err != nil {
		c.log.Warn("report lock unavailable", zap.String("key", key), zap.Error(err))
		return Report{}, fmt.Errorf("%w: report lock: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if !ok {
		return c.waitForWriter(ctx, empID, month)
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Write())
		defer cancel()
		if err := release(rctx); err != nil {
			c.log.Warn("report lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	// Another process may have written while we waited for the lock.
	if rep, ok, err := c.lookup(ctx, empID, month); err != nil {
		return Report{}, err
	} else if ok {
		return rep, nil
	}

	in, err := c.input(ctx, d, empID, month)
	if err != nil {
		return Report{}, err
	}

	text, err := retry.Do(ctx, c.genRetry, c.log, "narrative.generate", func(ctx context.Context) (string, error) {
		return c.gen.Generate(ctx, in)
	})
	if err != nil {
		return Report{}, err
	}
	text = htmlsanitize.PlainText(text)
	if text == "" {
		return Report{}, fmt.Errorf("%w: generator returned no text", apperr.ErrUpstreamUnavailable)
	}

	rev := models.ReportRevision{
		Text:        text,
		GeneratedAt: c.now().UTC(),
		Generator:   c.gen.Name(),
		RequestID:   uuid.NewString(),
	}
	saved, err := retry.Do(ctx, c.storeRetry.WithAttemptTimeout(timeouts.Write()), c.log, "reports.save", func(ctx context.Context) (models.GeneratedReport, error) {
		return c.store.Save(ctx, empID, month.String(), rev)
	})
	if err != nil {
		return Report{}, err
	}

	c.audit.ReportGenerated(ctx, empID, month.String(), rev.Generator, rev.RequestID)
	c.log.Info("report generated",
		zap.String("employer_id", empID.Hex()),
		zap.String("month", month.String()),
		zap.String("generator", rev.Generator),
		zap.String("request_id", rev.RequestID))

	return Report{
		EmployerID:  empID,
		Month:       month,
		Text:        saved.Text,
		Cached:      false,
		GeneratedAt: saved.GeneratedAt,
		Generator:   saved.Generator,
	}, nil
}

func (c *Cache) input(ctx context.Context, d scopepolicy.Decision, empID primitive.ObjectID, month period.Month) (narrative.Input, error) {
	in := narrative.Input{EmployerID: empID, Month: month}
	win, err := period.LastN(month, c.cfg.SeriesMonths)
	if err != nil {
		return in, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Metrics, err = c.agg.Compute(gctx, d, month)
		return err
	})
	g.Go(func() error {
		var err error
		in.Series, err = c.series.Build(gctx, d, win)
		return err
	})
	if c.names != nil {
		g.Go(func() error {
			name, err := c.names(gctx, empID)
			if err != nil {
				c.log.Warn("employer name lookup failed", zap.String("employer_id", empID.Hex()), zap.Error(err))
				return nil
			}
			in.EmployerName = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return in, err
	}
	return in, nil
}

// waitForWriter polls the store until the lock holder's report appears.
func (c *Cache) waitForWriter(ctx context.Context, empID primitive.ObjectID, month period.Month) (Report, error) {
	wait, cancel := context.WithTimeout(ctx, c.cfg.LockTTL)
	defer cancel()
	ticker := time.NewTicker(c.cfg.WaitPoll)
	defer ticker.Stop()

	for {
		select {
		case <-wait.Done():
			if ctx.Err() != nil {
				return Report{}, ctx.Err()
			}
			return Report{}, fmt.Errorf("%w: timed out waiting for report %s", apperr.ErrUpstreamUnavailable, cacheKey(empID, month))
		case <-ticker.C:
			rep, ok, err := c.lookup(wait, empID, month)
			if err != nil {
				c.log.Warn("report wait read failed", zap.String("key", cacheKey(empID, month)), zap.Error(err))
				continue
			}
			if ok {
				return rep, nil
			}
		}
	}
}
