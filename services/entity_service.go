package services

import (
	"context"
	"fmt"

	"github.com/tim7en/pm-app-sub001/dto"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"github.com/tim7en/pm-app-sub001/retention"
)

const (
	defaultDeletedLimit = 50
	maxDeletedLimit     = 500
)

// EntityService exposes lifecycle operations to the admin API
type EntityService struct {
	operator *lifecycle.Operator
	sweeper  *retention.Sweeper
}

// NewEntityService creates a new entity service instance
func NewEntityService(operator *lifecycle.Operator, sweeper *retention.Sweeper) *EntityService {
	return &EntityService{
		operator: operator,
		sweeper:  sweeper,
	}
}

// GetEntity returns a live record by ID. Soft-deleted records are reported as not found.
func (s *EntityService) GetEntity(ctx context.Context, t models.EntityType, id string) (models.Record, error) {
	records, err := s.operator.FindLive(ctx, t, repositories.Filter{models.ColumnID: id}, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %s", lifecycle.ErrRecordNotFound, t, id)
	}
	return records[0], nil
}

// ListDeleted returns soft-deleted records of a type, oldest deletion first
func (s *EntityService) ListDeleted(ctx context.Context, t models.EntityType, limit int) (dto.DeletedListResponse, error) {
	if limit <= 0 {
		limit = defaultDeletedLimit
	}
	if limit > maxDeletedLimit {
		limit = maxDeletedLimit
	}

	records, err := s.operator.FindDeleted(ctx, t, nil, limit)
	if err != nil {
		return dto.DeletedListResponse{}, err
	}
	if records == nil {
		records = []models.Record{}
	}
	return dto.DeletedListResponse{
		EntityType: t,
		Records:    records,
		Count:      len(records),
	}, nil
}

// DeleteEntity soft-deletes a record and, unless disabled, its dependents
func (s *EntityService) DeleteEntity(ctx context.Context, t models.EntityType, id, actor string, req dto.TransitionRequest) (dto.TransitionResponse, error) {
	result, err := s.operator.SoftDelete(ctx, t, repositories.Filter{models.ColumnID: id}, transitionOptions(actor, req)...)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	return dto.NewTransitionResponse(result), nil
}

// RestoreEntity restores a soft-deleted record and, if requested, its dependents
func (s *EntityService) RestoreEntity(ctx context.Context, t models.EntityType, id, actor string, req dto.TransitionRequest) (dto.TransitionResponse, error) {
	result, err := s.operator.Restore(ctx, t, repositories.Filter{models.ColumnID: id}, transitionOptions(actor, req)...)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	return dto.NewTransitionResponse(result), nil
}

// Cleanup permanently erases expired soft-deleted records of a type
func (s *EntityService) Cleanup(ctx context.Context, t models.EntityType, req dto.CleanupRequest) (dto.CleanupResponse, error) {
	result, err := s.sweeper.Cleanup(ctx, t, retention.CleanupOptions{
		OlderThanDays: req.OlderThanDays,
		BatchSize:     req.BatchSize,
		DryRun:        req.DryRun,
	})
	if err != nil {
		return dto.CleanupResponse{}, err
	}
	return dto.NewCleanupResponse(result), nil
}

func transitionOptions(actor string, req dto.TransitionRequest) []lifecycle.Option {
	opts := []lifecycle.Option{
		lifecycle.WithActor(actor),
		lifecycle.WithReason(req.Reason),
	}
	if req.Cascade != nil {
		opts = append(opts, lifecycle.WithCascade(*req.Cascade))
	}
	return opts
}
