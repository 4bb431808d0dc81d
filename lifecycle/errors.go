package lifecycle

import (
	"errors"

	"github.com/tim7en/pm-app-sub001/repositories"
)

var (
	// ErrNotConfigured is returned for entity types absent from the registry
	ErrNotConfigured = errors.New("entity type not configured for lifecycle management")
	// ErrInvalidConfig is returned when a registry fails validation
	ErrInvalidConfig = errors.New("invalid cascade configuration")
	// ErrCascadeDepth is returned when traversal goes deeper than the registry allows
	ErrCascadeDepth = errors.New("cascade depth exceeded")
	// ErrMissingAdapter is returned when a registered type has no store
	ErrMissingAdapter = errors.New("no adapter for entity type")

	// ErrRecordNotFound is returned when the filter matches nothing.
	// For Restore it also covers records that are not currently deleted.
	ErrRecordNotFound = repositories.ErrRecordNotFound
	// ErrVersionConflict is returned when concurrent writers kept winning
	// after all retries were spent
	ErrVersionConflict = repositories.ErrVersionConflict
)
