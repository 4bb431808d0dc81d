package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyFilter is returned when a transition is requested without a filter
var ErrEmptyFilter = errors.New("transition requires a non-empty filter")

type operation string

const (
	opSoftDelete operation = "soft_delete"
	opRestore    operation = "restore"
)

// CascadeFailure describes one cascade branch that did not complete
type CascadeFailure struct {
	Parent     models.EntityType `json:"parent"`
	ParentID   string            `json:"parentId"`
	Dependent  models.EntityType `json:"dependent"`
	ForeignKey string            `json:"foreignKey"`
	Error      string            `json:"error"`

	err error
}

// Unwrap returns the branch error
func (f CascadeFailure) Unwrap() error {
	return f.err
}

// Result is the outcome of a SoftDelete or Restore call
type Result struct {
	EntityType models.EntityType `json:"entityType"`
	// Records holds the primary records after the transition
	Records []models.Record `json:"records"`
	// Cascaded counts dependents transitioned at any depth
	Cascaded int `json:"cascaded"`
	// Failures lists cascade branches that failed at any depth
	Failures []CascadeFailure `json:"failures,omitempty"`
}

// Record returns the first primary record
func (r *Result) Record() models.Record {
	if r == nil || len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// Operator performs soft delete and restore across the cascade graph
type Operator struct {
	registry      *Registry
	adapters      repositories.Adapters
	logger        zerolog.Logger
	metrics       *Metrics
	now           func() time.Time
	concurrency   int
	retries       int
	retryInterval time.Duration
}

// NewOperator creates an Operator. Every registered type needs an adapter.
func NewOperator(registry *Registry, adapters repositories.Adapters, opts ...OperatorOption) (*Operator, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidConfig)
	}
	for _, t := range registry.Types() {
		if _, ok := adapters.Get(t); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAdapter, t)
		}
	}

	o := &Operator{
		registry:      registry,
		adapters:      adapters,
		logger:        zerolog.Nop(),
		now:           time.Now,
		concurrency:   1,
		retries:       3,
		retryInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Registry returns the cascade graph the operator walks
func (o *Operator) Registry() *Registry {
	return o.registry
}

// SoftDelete marks the records matching filter as deleted and, unless
// WithCascade(false) is given, does the same for their dependents.
// Deleting an already deleted record succeeds and overwrites its deletion time.
func (o *Operator) SoftDelete(ctx context.Context, t models.EntityType, filter repositories.Filter, opts ...Option) (*Result, error) {
	return o.run(ctx, opSoftDelete, t, filter, newCallOptions(true, opts))
}

// Restore clears the deletion mark of the deleted records matching filter.
// Live records are never matched, so restoring one yields ErrRecordNotFound.
// Dependents are only restored with WithCascade(true).
func (o *Operator) Restore(ctx context.Context, t models.EntityType, filter repositories.Filter, opts ...Option) (*Result, error) {
	return o.run(ctx, opRestore, t, filter, newCallOptions(false, opts))
}

// ExcludingDeleted narrows base to live records
func (o *Operator) ExcludingDeleted(t models.EntityType, base repositories.Filter) (repositories.Filter, error) {
	return o.registry.ExcludingDeleted(t, base)
}

// OnlyDeleted narrows base to soft-deleted records
func (o *Operator) OnlyDeleted(t models.EntityType, base repositories.Filter) (repositories.Filter, error) {
	return o.registry.OnlyDeleted(t, base)
}

// FindLive reads live records through ExcludingDeleted
func (o *Operator) FindLive(ctx context.Context, t models.EntityType, base repositories.Filter, limit int) ([]models.Record, error) {
	filter, err := o.registry.ExcludingDeleted(t, base)
	if err != nil {
		return nil, err
	}
	return o.adapters[t].Find(ctx, repositories.Query{Filter: filter, Limit: limit})
}

// FindDeleted reads soft-deleted records through OnlyDeleted, oldest deletion first
func (o *Operator) FindDeleted(ctx context.Context, t models.EntityType, base repositories.Filter, limit int) ([]models.Record, error) {
	entry, err := o.registry.Lookup(t)
	if err != nil {
		return nil, err
	}
	filter, err := o.registry.OnlyDeleted(t, base)
	if err != nil {
		return nil, err
	}
	return o.adapters[t].Find(ctx, repositories.Query{Filter: filter, OrderBy: entry.DeletedAtField, Limit: limit})
}

func (o *Operator) run(ctx context.Context, op operation, t models.EntityType, filter repositories.Filter, call callOptions) (*Result, error) {
	start := time.Now()

	var (
		result *Result
		err    error
	)
	if len(filter) == 0 {
		err = ErrEmptyFilter
	} else {
		result, err = o.transition(ctx, op, t, filter, call, 0)
	}
	o.metrics.observe(t, op, result, err, time.Since(start))

	if err != nil {
		o.logger.Error().
			Err(err).
			Str("operation", string(op)).
			Str("entity", string(t)).
			Str("filter", filter.String()).
			Str("actor", call.actor).
			Bool("cascade", call.cascade).
			Msg("lifecycle transition failed")
		return nil, err
	}

	event := o.logger.Info()
	if len(result.Failures) > 0 {
		event = o.logger.Warn()
	}
	event.
		Str("operation", string(op)).
		Str("entity", string(t)).
		Str("filter", filter.String()).
		Str("actor", call.actor).
		Bool("cascade", call.cascade).
		Int("records", len(result.Records)).
		Int("cascaded", result.Cascaded).
		Int("cascade_failures", len(result.Failures)).
		Dur("elapsed", time.Since(start)).
		Msg("lifecycle transition completed")
	return result, nil
}

// transition updates the primary records, then walks their cascade edges
func (o *Operator) transition(ctx context.Context, op operation, t models.EntityType, filter repositories.Filter, call callOptions, depth int) (*Result, error) {
	if depth > o.registry.MaxDepth() {
		return nil, fmt.Errorf("%w: %s at depth %d", ErrCascadeDepth, t, depth)
	}

	entry, err := o.registry.Lookup(t)
	if err != nil {
		return nil, err
	}
	adapter := o.adapters[t]

	if op == opRestore {
		filter = filter.Merge(repositories.Filter{entry.DeletedAtField: repositories.NotNull})
	}

	// Children are addressed by the parent ids, so read before writing
	targets, err := adapter.Find(ctx, repositories.Query{Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("failed to find %s records: %w", t, err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, t, filter)
	}

	now := o.now().UTC()
	patch := o.patch(op, entry, call, now)

	result := &Result{EntityType: t, Records: make([]models.Record, 0, len(targets))}
	for _, target := range targets {
		updated, err := o.apply(ctx, op, entry, adapter, target, patch)
		if err != nil {
			return nil, fmt.Errorf("failed to %s %s %s: %w", op, t, target.GetID(), err)
		}
		result.Records = append(result.Records, updated)
	}

	if depth > 0 {
		o.logger.Debug().
			Str("operation", string(op)).
			Str("entity", string(t)).
			Str("filter", filter.String()).
			Int("depth", depth).
			Int("records", len(result.Records)).
			Msg("cascade step applied")
	}

	if call.cascade && len(entry.Cascade) > 0 {
		o.cascade(ctx, op, entry, result, call, depth)
	}
	return result, nil
}

func (o *Operator) patch(op operation, entry Entry, call callOptions, now time.Time) repositories.Patch {
	if op == opRestore {
		patch := repositories.Patch{
			entry.DeletedAtField:    nil,
			models.ColumnRestoredAt: now,
		}
		if call.actor != "" {
			patch[models.ColumnRestoredBy] = call.actor
		}
		if call.reason != "" {
			patch[models.ColumnRestoreReason] = call.reason
		}
		return patch
	}

	patch := repositories.Patch{entry.DeletedAtField: now}
	if call.actor != "" {
		patch[models.ColumnDeletedBy] = call.actor
	}
	if call.reason != "" {
		patch[models.ColumnDeleteReason] = call.reason
	}
	return patch
}

// apply writes patch with compare-and-swap, re-reading and retrying on
// version conflicts
func (o *Operator) apply(ctx context.Context, op operation, entry Entry, adapter repositories.Adapter, target models.Record, patch repositories.Patch) (models.Record, error) {
	current := target
	reload := repositories.Filter{models.ColumnID: target.GetID()}
	if op == opRestore {
		reload[entry.DeletedAtField] = repositories.NotNull
	}

	attempt := func() (models.Record, error) {
		updated, err := adapter.Update(ctx, current.GetID(), current.GetVersion(), patch)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, backoff.Permanent(err)
		}

		o.metrics.conflict(entry.Type)
		o.logger.Debug().
			Str("entity", string(entry.Type)).
			Str("id", current.GetID()).
			Int64("version", current.GetVersion()).
			Msg("version conflict, reloading record")

		fresh, ferr := adapter.Find(ctx, repositories.Query{Filter: reload, Limit: 1})
		if ferr != nil {
			return nil, backoff.Permanent(ferr)
		}
		if len(fresh) == 0 {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s %s", ErrRecordNotFound, entry.Type, current.GetID()))
		}
		current = fresh[0]
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.retryInterval
	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(o.retries+1)),
	)
}

type branch struct {
	parentID string
	edge     Edge
}

type branchOutcome struct {
	cascaded int
	failures []CascadeFailure
}

// cascade runs every (record, edge) branch. Branch errors are recorded on
// result and never returned.
func (o *Operator) cascade(ctx context.Context, op operation, entry Entry, result *Result, call callOptions, depth int) {
	branches := make([]branch, 0, len(result.Records)*len(entry.Cascade))
	for _, record := range result.Records {
		for _, edge := range entry.Cascade {
			branches = append(branches, branch{parentID: record.GetID(), edge: edge})
		}
	}

	outcomes := make([]branchOutcome, len(branches))
	var group errgroup.Group
	group.SetLimit(o.concurrency)
	for i, b := range branches {
		group.Go(func() error {
			outcomes[i] = o.runBranch(ctx, op, entry.Type, b, call, depth)
			return nil
		})
	}
	_ = group.Wait()

	for _, outcome := range outcomes {
		result.Cascaded += outcome.cascaded
		result.Failures = append(result.Failures, outcome.failures...)
	}
}

func (o *Operator) runBranch(ctx context.Context, op operation, parent models.EntityType, b branch, call callOptions, depth int) (outcome branchOutcome) {
	fail := func(err error) branchOutcome {
		o.metrics.cascadeFailure(parent, b.edge.Dependent, op)
		o.logger.Warn().
			Err(err).
			Str("operation", string(op)).
			Str("parent", string(parent)).
			Str("parent_id", b.parentID).
			Str("dependent", string(b.edge.Dependent)).
			Str("foreign_key", b.edge.ForeignKey).
			Msg("cascade branch failed")
		return branchOutcome{failures: []CascadeFailure{{
			Parent:     parent,
			ParentID:   b.parentID,
			Dependent:  b.edge.Dependent,
			ForeignKey: b.edge.ForeignKey,
			Error:      err.Error(),
			err:        err,
		}}}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = fail(fmt.Errorf("panic in cascade branch: %v", r))
		}
	}()

	child := call
	child.cascade = true
	child.reason = cascadeReason(parent, b.parentID, call.origin)

	res, err := o.transition(ctx, op, b.edge.Dependent, repositories.Filter{b.edge.ForeignKey: b.parentID}, child, depth+1)
	if errors.Is(err, ErrRecordNotFound) {
		return branchOutcome{}
	}
	if err != nil {
		return fail(err)
	}
	return branchOutcome{
		cascaded: len(res.Records) + res.Cascaded,
		failures: res.Failures,
	}
}

func cascadeReason(parent models.EntityType, parentID, reason string) string {
	tag := fmt.Sprintf("cascade from %s %s", parent, parentID)
	if reason == "" {
		return tag
	}
	return tag + ": " + reason
}
