// internal/app/system/workers/reportwarmer.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/reportcache"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EmployerLister returns the employers the warmer should prepare reports for.
type EmployerLister interface {
	ListActive(ctx context.Context) ([]models.Employer, error)
}

// ReportSource is the part of the report cache the warmer drives.
type ReportSource interface {
	GetOrGenerate(ctx context.Context, d scopepolicy.Decision, month period.Month) (reportcache.Report, error)
}

// ReportWarmer is a background worker that generates last month's narrative
// for every active employer so the first reader of the month gets a hit.
type ReportWarmer struct {
	employers EmployerLister
	reports   ReportSource
	log       *zap.Logger
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewReportWarmer creates a new report warmer.
//
// Parameters:
//   - employers: source of active employers
//   - reports: the report cache
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 hour)
//   - timeout: budget for one sweep
func NewReportWarmer(employers EmployerLister, reports ReportSource, logger *zap.Logger, interval, timeout time.Duration) *ReportWarmer {
	return &ReportWarmer{
		employers: employers,
		reports:   reports,
		log:       logger,
		interval:  interval,
		timeout:   timeout,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ReportWarmer) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("report warmer started",
		zap.Duration("interval", w.interval),
		zap.Duration("timeout", w.timeout))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *ReportWarmer) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("report warmer stopped")
}

func (w *ReportWarmer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep warms every active employer once and returns how many reports were
// freshly generated.
func (w *ReportWarmer) Sweep() int {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	emps, err := w.employers.ListActive(ctx)
	if err != nil {
		w.log.Error("failed to list employers for report warming", zap.Error(err))
		return 0
	}

	month := period.Of(w.now()).Prev()
	generated := 0
	for _, e := range emps {
		select {
		case <-w.stopCh:
			return generated
		default:
		}
		if ctx.Err() != nil {
			w.log.Warn("report warming ran out of time",
				zap.Int("generated", generated),
				zap.Int("employers", len(emps)))
			return generated
		}

		d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, e.ID, primitive.NilObjectID)
		rep, err := w.reports.GetOrGenerate(ctx, d, month)
		if err != nil {
			w.log.Warn("report warming failed",
				zap.String("employer_id", e.ID.Hex()),
				zap.String("month", month.String()),
				zap.Error(err))
			continue
		}
		if !rep.Cached {
			generated++
		}
	}

	if generated > 0 {
		w.log.Info("warmed narrative reports",
			zap.String("month", month.String()),
			zap.Int("generated", generated))
	}
	return generated
}
