package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type triggerResponse struct {
	RunID  uuid.UUID             `json:"run_id"`
	Status reconciliation.Status `json:"status"`
}

type runResponse struct {
	RunID          uuid.UUID                 `json:"run_id"`
	Status         reconciliation.Status     `json:"status"`
	StartedAt      time.Time                 `json:"started_at"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	SnapshotCutoff time.Time                 `json:"snapshot_cutoff"`
	Phases         []matching.PhaseStats     `json:"phases"`
	Counts         map[matching.Category]int `json:"discrepancy_counts"`
	SkippedRecords int                       `json:"skipped_records"`
	Error          string                    `json:"error,omitempty"`
}

func toRunResponse(run *reconciliation.Run) runResponse {
	resp := runResponse{
		RunID:          run.ID,
		Status:         run.Status,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
		SnapshotCutoff: run.SnapshotCutoff,
		Phases:         run.Phases,
		Counts:         run.Counts,
		SkippedRecords: run.SkippedRecords,
		Error:          run.Error,
	}

	if resp.Phases == nil {
		resp.Phases = []matching.PhaseStats{}
	}

	if resp.Counts == nil {
		resp.Counts = map[matching.Category]int{}
	}

	return resp
}
