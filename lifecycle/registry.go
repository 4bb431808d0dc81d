package lifecycle

import (
	"fmt"

	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
)

// Edge declares that records of Dependent whose ForeignKey column holds a
// parent's id follow the parent through delete and restore
type Edge struct {
	Dependent  models.EntityType `yaml:"dependent" json:"dependent"`
	ForeignKey string            `yaml:"foreignKey" json:"foreignKey"`
}

// Entry is the cascade configuration of one entity type
type Entry struct {
	Type           models.EntityType `yaml:"type" json:"type"`
	DeletedAtField string            `yaml:"deletedAtField" json:"deletedAtField"`
	Cascade        []Edge            `yaml:"cascade" json:"cascade"`
}

// Registry is the validated, read-only cascade graph
type Registry struct {
	entries    map[models.EntityType]Entry
	order      []models.EntityType
	purgeOrder []models.EntityType
	maxDepth   int
}

// NewRegistry validates entries and freezes them into a Registry.
// Every dependent must itself be registered and the graph must be acyclic.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[models.EntityType]Entry, len(entries)),
	}

	for _, entry := range entries {
		if entry.Type == "" {
			return nil, fmt.Errorf("%w: entry without a type", ErrInvalidConfig)
		}
		if _, exists := r.entries[entry.Type]; exists {
			return nil, fmt.Errorf("%w: %s registered twice", ErrInvalidConfig, entry.Type)
		}
		if entry.DeletedAtField == "" {
			entry.DeletedAtField = models.ColumnDeletedAt
		}
		entry.Cascade = append([]Edge(nil), entry.Cascade...)
		r.entries[entry.Type] = entry
		r.order = append(r.order, entry.Type)
	}

	for _, t := range r.order {
		seen := make(map[Edge]bool)
		for _, edge := range r.entries[t].Cascade {
			if edge.Dependent == "" || edge.ForeignKey == "" {
				return nil, fmt.Errorf("%w: %s has an edge without dependent or foreign key", ErrInvalidConfig, t)
			}
			if _, ok := r.entries[edge.Dependent]; !ok {
				return nil, fmt.Errorf("%w: %s cascades to unregistered type %s", ErrInvalidConfig, t, edge.Dependent)
			}
			if seen[edge] {
				return nil, fmt.Errorf("%w: %s declares %s.%s twice", ErrInvalidConfig, t, edge.Dependent, edge.ForeignKey)
			}
			seen[edge] = true
		}
	}

	if err := r.walk(); err != nil {
		return nil, err
	}
	return r, nil
}

// walk rejects cycles and computes the purge order and the longest chain
func (r *Registry) walk() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[models.EntityType]int, len(r.order))
	height := make(map[models.EntityType]int, len(r.order))

	var visit func(t models.EntityType, path []models.EntityType) error
	visit = func(t models.EntityType, path []models.EntityType) error {
		switch state[t] {
		case visiting:
			return fmt.Errorf("%w: cycle %v -> %s", ErrInvalidConfig, path, t)
		case done:
			return nil
		}
		state[t] = visiting
		for _, edge := range r.entries[t].Cascade {
			if err := visit(edge.Dependent, append(path, t)); err != nil {
				return err
			}
			if h := height[edge.Dependent] + 1; h > height[t] {
				height[t] = h
			}
		}
		state[t] = done
		r.purgeOrder = append(r.purgeOrder, t)
		if height[t] > r.maxDepth {
			r.maxDepth = height[t]
		}
		return nil
	}

	for _, t := range r.order {
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the configuration of an entity type
func (r *Registry) Lookup(t models.EntityType) (Entry, error) {
	entry, ok := r.entries[t]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotConfigured, t)
	}
	entry.Cascade = append([]Edge(nil), entry.Cascade...)
	return entry, nil
}

// Types returns the registered types in registration order
func (r *Registry) Types() []models.EntityType {
	return append([]models.EntityType(nil), r.order...)
}

// PurgeOrder returns the registered types with every dependent ahead of its parents
func (r *Registry) PurgeOrder() []models.EntityType {
	return append([]models.EntityType(nil), r.purgeOrder...)
}

// MaxDepth is the number of edges on the longest cascade chain
func (r *Registry) MaxDepth() int {
	return r.maxDepth
}

// ExcludingDeleted returns base narrowed to live records
func (r *Registry) ExcludingDeleted(t models.EntityType, base repositories.Filter) (repositories.Filter, error) {
	entry, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}
	return base.Merge(repositories.Filter{entry.DeletedAtField: repositories.IsNull}), nil
}

// OnlyDeleted returns base narrowed to soft-deleted records
func (r *Registry) OnlyDeleted(t models.EntityType, base repositories.Filter) (repositories.Filter, error) {
	entry, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}
	return base.Merge(repositories.Filter{entry.DeletedAtField: repositories.NotNull}), nil
}
