package dto

import (
	"time"

	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/retention"
)

// TransitionRequest is the optional body of delete and restore calls.
// A nil Cascade keeps the operation's default.
type TransitionRequest struct {
	Cascade *bool  `json:"cascade"`
	Reason  string `json:"reason" binding:"max=500"`
}

// CleanupRequest is the body of a retention cleanup call.
// Zero values fall back to the configured retention settings.
type CleanupRequest struct {
	OlderThanDays int  `json:"olderThanDays" binding:"gte=0"`
	BatchSize     int  `json:"batchSize" binding:"gte=0,lte=1000"`
	DryRun        bool `json:"dryRun"`
}

// TransitionResponse reports the primary record and cascade outcome
type TransitionResponse struct {
	EntityType models.EntityType          `json:"entityType"`
	Record     models.Record              `json:"record"`
	Cascaded   int                        `json:"cascaded"`
	Failures   []lifecycle.CascadeFailure `json:"failures,omitempty"`
}

// NewTransitionResponse builds the response for a lifecycle result
func NewTransitionResponse(result *lifecycle.Result) TransitionResponse {
	return TransitionResponse{
		EntityType: result.EntityType,
		Record:     result.Record(),
		Cascaded:   result.Cascaded,
		Failures:   result.Failures,
	}
}

// CleanupResponse reports a retention cleanup
type CleanupResponse struct {
	EntityType       models.EntityType `json:"entityType"`
	Cutoff           time.Time         `json:"cutoff"`
	DryRun           bool              `json:"dryRun"`
	DeletedCount     int64             `json:"deletedCount"`
	CandidateRecords []models.Record   `json:"candidateRecords"`
	Archive          string            `json:"archive,omitempty"`
}

// NewCleanupResponse builds the response for a cleanup result
func NewCleanupResponse(result *retention.CleanupResult) CleanupResponse {
	candidates := result.Candidates
	if candidates == nil {
		candidates = []models.Record{}
	}
	return CleanupResponse{
		EntityType:       result.EntityType,
		Cutoff:           result.Cutoff,
		DryRun:           result.DryRun,
		DeletedCount:     result.DeletedCount,
		CandidateRecords: candidates,
		Archive:          result.Archive,
	}
}

// DeletedListResponse is the recycle bin listing of one entity type
type DeletedListResponse struct {
	EntityType models.EntityType `json:"entityType"`
	Records    []models.Record   `json:"records"`
	Count      int               `json:"count"`
}
