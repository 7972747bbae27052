// Package maintenance runs scheduled background jobs: a folder-tree integrity
// sweep and audit-log retention pruning.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cascadehq/flowdeck/internal/services"
	"github.com/cascadehq/flowdeck/internal/stores"
	"github.com/cascadehq/flowdeck/pkg/logger"
	"github.com/cascadehq/flowdeck/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultIntegritySpec      = "@daily"
	defaultAuditSpec          = "@daily"
)

// Sweeper coordinates background maintenance: it audits the folder forest for
// corruption the request path would surface as errors, and prunes stale audit
// logs. Nil dependencies disable the corresponding job.
type Sweeper struct {
	stores    stores.Stores
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	integritySchedule string
	auditSchedule     string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithIntegritySchedule overrides the cron specification for the tree sweep.
func WithIntegritySchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.integritySchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit pruning.
func WithAuditSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(st stores.Stores, audit *services.AuditService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		stores:            st,
		audit:             audit,
		now:               time.Now,
		retention:         defaultAuditRetentionDays,
		integritySchedule: defaultIntegritySpec,
		auditSchedule:     defaultAuditSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the jobs with the scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.stores != nil {
		if _, err := s.cron.AddFunc(s.integritySchedule, func() {
			if _, err := s.SweepTreeIntegrity(context.Background()); err != nil {
				s.log.Warn("tree integrity sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			cutoff := s.now().AddDate(0, 0, -s.retention)
			if _, err := s.audit.Prune(context.Background(), cutoff); err != nil {
				s.log.Warn("audit pruning failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.stores != nil {
		if _, err := s.SweepTreeIntegrity(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.audit != nil && s.retention > 0 {
		cutoff := s.now().AddDate(0, 0, -s.retention)
		if _, err := s.audit.Prune(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// IntegrityReport summarises problems found in the folder forest.
type IntegrityReport struct {
	Folders int
	Cycles  int
	Orphans int
}

// SweepTreeIntegrity scans every folder for parent references that point at a
// missing folder and for parent chains that loop. It only reports; repair is a
// manual operation.
func (s *Sweeper) SweepTreeIntegrity(ctx context.Context) (IntegrityReport, error) {
	folders, err := s.stores.Folders().FindAll(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}

	parents := make(map[string]*string, len(folders))
	for _, folder := range folders {
		parents[folder.ID] = folder.ParentID
	}

	report := IntegrityReport{Folders: len(folders)}

	// safe holds folders already proven to reach a root.
	safe := make(map[string]struct{}, len(folders))
	for _, folder := range folders {
		if folder.ParentID != nil {
			if _, ok := parents[*folder.ParentID]; !ok {
				report.Orphans++
				s.log.Warn("folder parent reference is dangling",
					zap.String("folder_id", folder.ID),
					zap.String("parent_id", *folder.ParentID))
			}
		}

		if onCycle(folder.ID, parents, safe) {
			report.Cycles++
			s.log.Warn("folder is part of a parent cycle", zap.String("folder_id", folder.ID))
		}
	}

	metrics.TreeIntegrityIssues.WithLabelValues("cycle").Set(float64(report.Cycles))
	metrics.TreeIntegrityIssues.WithLabelValues("orphan").Set(float64(report.Orphans))

	s.log.Info("tree integrity sweep complete",
		zap.Int("folders", report.Folders),
		zap.Int("cycles", report.Cycles),
		zap.Int("orphans", report.Orphans))
	return report, nil
}

// onCycle walks the parent chain from id. Reaching a root, a dangling
// reference, or a previously cleared folder proves the chain terminates.
func onCycle(id string, parents map[string]*string, safe map[string]struct{}) bool {
	visited := map[string]struct{}{}
	path := []string{}

	current := id
	for {
		if _, ok := safe[current]; ok {
			break
		}
		if _, seen := visited[current]; seen {
			return true
		}
		visited[current] = struct{}{}
		path = append(path, current)

		parent := parents[current]
		if parent == nil {
			break
		}
		if _, ok := parents[*parent]; !ok {
			// Dangling reference; the chain still terminates.
			break
		}
		current = *parent
	}

	for _, cleared := range path {
		safe[cleared] = struct{}{}
	}
	return false
}
