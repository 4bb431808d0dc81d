package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
)

// CleanupOptions controls a single Cleanup call. Zero values fall back to
// the sweeper configuration.
type CleanupOptions struct {
	OlderThanDays int
	BatchSize     int
	DryRun        bool
}

// CleanupResult reports what a Cleanup call selected and erased
type CleanupResult struct {
	EntityType   models.EntityType `json:"entityType"`
	Cutoff       time.Time         `json:"cutoff"`
	DryRun       bool              `json:"dryRun"`
	DeletedCount int64             `json:"deletedCount"`
	Candidates   []models.Record   `json:"candidateRecords"`
	Archive      string            `json:"archive,omitempty"`
}

// SweepReport aggregates a SweepAll run
type SweepReport struct {
	RunID    string                      `json:"runId"`
	Started  time.Time                   `json:"started"`
	Finished time.Time                   `json:"finished"`
	DryRun   bool                        `json:"dryRun"`
	Deleted  map[models.EntityType]int64 `json:"deleted"`
	// Candidates counts the records a dry run would erase
	Candidates map[models.EntityType]int64  `json:"candidates,omitempty"`
	Failures   map[models.EntityType]string `json:"failures,omitempty"`
}

// Total returns the number of records erased across all types
func (r *SweepReport) Total() int64 {
	var total int64
	for _, n := range r.Deleted {
		total += n
	}
	return total
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithLogger sets the sweeper logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger.With().Str("component", "retention").Logger()
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(metrics *Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = metrics
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

// Sweeper erases soft-deleted records past the retention window
type Sweeper struct {
	registry *lifecycle.Registry
	adapters repositories.Adapters
	config   *Config
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewSweeper creates a sweeper over the registered entity types
func NewSweeper(registry *lifecycle.Registry, adapters repositories.Adapters, config *Config, opts ...Option) (*Sweeper, error) {
	if registry == nil {
		return nil, errors.New("retention sweeper requires a registry")
	}
	for _, t := range registry.Types() {
		if _, ok := adapters.Get(t); !ok {
			return nil, fmt.Errorf("%w: %s", lifecycle.ErrMissingAdapter, t)
		}
	}

	s := &Sweeper{
		registry: registry,
		adapters: adapters,
		config:   config.withDefaults(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the effective configuration
func (s *Sweeper) Config() Config {
	return *s.config
}

// Cleanup selects up to BatchSize records of type t soft-deleted before
// now - OlderThanDays and, unless DryRun, erases exactly those records.
func (s *Sweeper) Cleanup(ctx context.Context, t models.EntityType, opts CleanupOptions) (*CleanupResult, error) {
	result, err := s.cleanup(ctx, t, opts, uuid.NewString())
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("entity", string(t)).
			Int("older_than_days", opts.OlderThanDays).
			Bool("dry_run", opts.DryRun).
			Msg("retention cleanup failed")
	}
	return result, err
}

// archiveID names the archive file and must be unique per call.
func (s *Sweeper) cleanup(ctx context.Context, t models.EntityType, opts CleanupOptions, archiveID string) (*CleanupResult, error) {
	entry, err := s.registry.Lookup(t)
	if err != nil {
		return nil, err
	}
	adapter := s.adapters[t]

	if opts.OlderThanDays <= 0 {
		opts.OlderThanDays = s.config.RetentionDays
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = s.config.BatchSize
	}

	cutoff := s.now().UTC().AddDate(0, 0, -opts.OlderThanDays)
	expired := repositories.Filter{entry.DeletedAtField: repositories.Before(cutoff)}

	candidates, err := adapter.Find(ctx, repositories.Query{
		Filter:  expired,
		OrderBy: entry.DeletedAtField,
		Limit:   opts.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select %s cleanup candidates: %w", t, err)
	}

	result := &CleanupResult{
		EntityType: t,
		Cutoff:     cutoff,
		DryRun:     opts.DryRun,
		Candidates: candidates,
	}

	log := s.logger.With().
		Str("entity", string(t)).
		Time("cutoff", cutoff).
		Int("candidates", len(candidates)).
		Bool("dry_run", opts.DryRun).
		Logger()

	if len(candidates) == 0 {
		log.Info().Msg("retention cleanup found nothing to erase")
		return result, nil
	}
	if opts.DryRun {
		log.Info().Msg("retention cleanup dry run selected candidates")
		return result, nil
	}

	if s.config.ArchiveDir != "" {
		path, err := writeArchive(s.config.ArchiveDir, t, s.now().UTC(), archiveID, candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to archive %s records: %w", t, err)
		}
		result.Archive = path
	}

	ids := make([]string, len(candidates))
	for i, record := range candidates {
		ids[i] = record.GetID()
	}

	// Re-check the cutoff so records restored since the select are kept
	deleted, err := adapter.Delete(ctx, expired.Merge(repositories.Filter{
		models.ColumnID: repositories.In(ids...),
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s records: %w", t, err)
	}
	result.DeletedCount = deleted
	s.metrics.purged(t, deleted)

	log.Info().
		Int64("deleted_count", deleted).
		Str("archive", result.Archive).
		Msg("retention cleanup erased records")
	return result, nil
}

// SweepAll runs Cleanup for every registered type, dependents first, with
// the configured retention window. Each type is swept in batches until a
// batch comes back short or MaxBatches is reached. A failing type does not
// stop the others; all failures are joined into the returned error.
func (s *Sweeper) SweepAll(ctx context.Context, dryRun bool) (*SweepReport, error) {
	report := &SweepReport{
		RunID:   uuid.NewString(),
		Started: s.now().UTC(),
		DryRun:  dryRun,
		Deleted: make(map[models.EntityType]int64),
	}
	if dryRun {
		report.Candidates = make(map[models.EntityType]int64)
	}
	log := s.logger.With().Str("run_id", report.RunID).Logger()
	log.Info().
		Int("retention_days", s.config.RetentionDays).
		Bool("dry_run", dryRun).
		Msg("retention sweep started")

	var errs []error
	for _, t := range s.registry.PurgeOrder() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		for batch := 0; batch < s.config.MaxBatches; batch++ {
			archiveID := fmt.Sprintf("%s-%03d", report.RunID, batch+1)
			result, err := s.cleanup(ctx, t, CleanupOptions{DryRun: dryRun}, archiveID)
			if err != nil {
				if report.Failures == nil {
					report.Failures = make(map[models.EntityType]string)
				}
				report.Failures[t] = err.Error()
				errs = append(errs, err)
				s.metrics.failure(t)
				log.Warn().Err(err).Str("entity", string(t)).Msg("retention sweep failed for entity type")
				break
			}
			if dryRun {
				report.Candidates[t] += int64(len(result.Candidates))
				break
			}
			report.Deleted[t] += result.DeletedCount
			if len(result.Candidates) < s.config.BatchSize || result.DeletedCount == 0 {
				break
			}
		}
	}

	report.Finished = s.now().UTC()
	s.metrics.sweep(report.Finished.Sub(report.Started))

	log.Info().
		Int64("total_deleted", report.Total()).
		Int("failed_types", len(report.Failures)).
		Dur("elapsed", report.Finished.Sub(report.Started)).
		Msg("retention sweep completed")

	return report, errors.Join(errs...)
}
