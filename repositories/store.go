package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tim7en/pm-app-sub001/models"
	"gorm.io/gorm/clause"
)

var (
	// ErrRecordNotFound is returned when a filter or id matches no record
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a compare-and-swap update loses a race.
	// It is retryable.
	ErrVersionConflict = errors.New("version conflict")
	// ErrUnknownField is returned when a filter, patch or order names a column the model lacks
	ErrUnknownField = errors.New("unknown field")
	// ErrUnboundedDelete is returned when Delete is called without a filter
	ErrUnboundedDelete = errors.New("delete requires a non-empty filter")
)

// Adapter is the per-entity storage capability set used by the lifecycle engine
type Adapter interface {
	// Find returns the records matching the query
	Find(ctx context.Context, q Query) ([]models.Record, error)
	// Update applies patch to the record with the given id if its version still
	// equals version, bumps the version and returns the updated record
	Update(ctx context.Context, id string, version int64, patch Patch) (models.Record, error)
	// Delete physically removes every record matching filter
	Delete(ctx context.Context, filter Filter) (int64, error)
}

// Adapters maps each managed entity type to its store
type Adapters map[models.EntityType]Adapter

// Query selects records from a single entity table
type Query struct {
	Filter  Filter
	OrderBy string // column name, ascending
	Limit   int
}

// Patch maps column names to new values. A nil value writes NULL.
type Patch map[string]interface{}

// Filter maps column names to an equality value, nil (IS NULL) or a Condition
type Filter map[string]interface{}

// Merge returns a copy of f overlaid with other. Neither input is modified.
func (f Filter) Merge(other Filter) Filter {
	merged := make(Filter, len(f)+len(other))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Keys returns the filter columns in sorted order
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the filter for logs
func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		switch v := f[k].(type) {
		case nil:
			parts = append(parts, k+" IS NULL")
		case Condition:
			parts = append(parts, k+" "+v.String())
		default:
			parts = append(parts, fmt.Sprintf("%s = %v", k, v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Condition is a non-equality predicate on a single column
type Condition interface {
	Expression(column clause.Column) clause.Expression
	String() string
}

type nullCondition struct {
	negate bool
}

func (c nullCondition) Expression(column clause.Column) clause.Expression {
	if c.negate {
		return clause.Neq{Column: column, Value: nil}
	}
	return clause.Eq{Column: column, Value: nil}
}

func (c nullCondition) String() string {
	if c.negate {
		return "IS NOT NULL"
	}
	return "IS NULL"
}

var (
	// IsNull matches rows where the column is NULL
	IsNull Condition = nullCondition{}
	// NotNull matches rows where the column is not NULL
	NotNull Condition = nullCondition{negate: true}
)

type beforeCondition struct {
	t time.Time
}

func (c beforeCondition) Expression(column clause.Column) clause.Expression {
	return clause.Lt{Column: column, Value: c.t}
}

func (c beforeCondition) String() string {
	return "< " + c.t.Format(time.RFC3339)
}

// Before matches rows whose column holds a time strictly earlier than t.
// NULL never matches.
func Before(t time.Time) Condition {
	return beforeCondition{t: t}
}

type inCondition struct {
	values []interface{}
}

func (c inCondition) Expression(column clause.Column) clause.Expression {
	return clause.IN{Column: column, Values: c.values}
}

func (c inCondition) String() string {
	return fmt.Sprintf("IN %v", c.values)
}

// In matches rows whose column equals any of values
func In[V any](values ...V) Condition {
	converted := make([]interface{}, len(values))
	for i, v := range values {
		converted[i] = v
	}
	return inCondition{values: converted}
}
