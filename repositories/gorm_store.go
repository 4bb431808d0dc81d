package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tim7en/pm-app-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type recordPtr[T any] interface {
	*T
	models.Record
}

// GormStore is the gorm-backed Adapter for a single model type
type GormStore[T any, PT recordPtr[T]] struct {
	db     *gorm.DB
	schema *schema.Schema
}

var schemaCache sync.Map

// NewGormStore creates a store for model T on the given connection
func NewGormStore[T any, PT recordPtr[T]](db *gorm.DB) (*GormStore[T, PT], error) {
	sch, err := schema.Parse(new(T), &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &GormStore[T, PT]{db: db, schema: sch}, nil
}

// Table returns the table the store reads and writes
func (s *GormStore[T, PT]) Table() string {
	return s.schema.Table
}

// column resolves a field or column name to its database column
func (s *GormStore[T, PT]) column(name string) (clause.Column, error) {
	field := s.schema.LookUpField(name)
	if field == nil || field.DBName == "" {
		return clause.Column{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, s.schema.Table, name)
	}
	return clause.Column{Name: field.DBName}, nil
}

// where adds one condition per filter entry, in column order
func (s *GormStore[T, PT]) where(tx *gorm.DB, filter Filter) (*gorm.DB, error) {
	for _, key := range filter.Keys() {
		column, err := s.column(key)
		if err != nil {
			return nil, err
		}
		switch v := filter[key].(type) {
		case Condition:
			tx = tx.Where(v.Expression(column))
		default:
			tx = tx.Where(clause.Eq{Column: column, Value: v})
		}
	}
	return tx, nil
}

// Find retrieves every record matching the query
func (s *GormStore[T, PT]) Find(ctx context.Context, q Query) ([]models.Record, error) {
	tx, err := s.where(s.db.WithContext(ctx).Model(new(T)), q.Filter)
	if err != nil {
		return nil, err
	}

	if q.OrderBy != "" {
		column, err := s.column(q.OrderBy)
		if err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: column}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: models.ColumnID}})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.Record, len(rows))
	for i := range rows {
		records[i] = PT(&rows[i])
	}
	return records, nil
}

// FindByID retrieves a single record by primary key, whatever its lifecycle state
func (s *GormStore[T, PT]) FindByID(ctx context.Context, id string) (models.Record, error) {
	var row T
	err := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: models.ColumnID}, Value: id}).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, s.schema.Table, id)
	}
	if err != nil {
		return nil, err
	}
	return PT(&row), nil
}

// Update applies patch when the stored version still matches.
// The version column is incremented as part of the same statement.
func (s *GormStore[T, PT]) Update(ctx context.Context, id string, version int64, patch Patch) (models.Record, error) {
	values := make(map[string]interface{}, len(patch)+1)
	for key, value := range patch {
		column, err := s.column(key)
		if err != nil {
			return nil, err
		}
		values[column.Name] = value
	}
	values[models.ColumnVersion] = gorm.Expr("version + ?", 1)

	result := s.db.WithContext(ctx).Model(new(T)).
		Where(clause.Eq{Column: clause.Column{Name: models.ColumnID}, Value: id}).
		Where(clause.Eq{Column: clause.Column{Name: models.ColumnVersion}, Value: version}).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		err := s.db.WithContext(ctx).Model(new(T)).
			Where(clause.Eq{Column: clause.Column{Name: models.ColumnID}, Value: id}).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, s.schema.Table, id)
		}
		return nil, fmt.Errorf("%w: %s %s at version %d", ErrVersionConflict, s.schema.Table, id, version)
	}

	return s.FindByID(ctx, id)
}

// Delete physically removes the records matching filter (hard delete)
func (s *GormStore[T, PT]) Delete(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnboundedDelete
	}

	tx, err := s.where(s.db.WithContext(ctx), filter)
	if err != nil {
		return 0, err
	}

	result := tx.Delete(new(T))
	return result.RowsAffected, result.Error
}
