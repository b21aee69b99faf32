// Package store persists takeoff runs and the manual-correction log. Two
// backends implement the same interface: embedded SQLite for single-user
// CLI work and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Project string          `json:"project,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the takeoff pipeline. The
// pipeline itself is stateless per run; the store exists for auditing,
// the serve endpoint and the offline correction log.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, project string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.TakeoffResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Correction log: append-only, never read back during a run.
	AppendCorrection(ctx context.Context, c model.Correction) (*model.Correction, error)
	ListCorrections(ctx context.Context, runID string) ([]model.Correction, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// statusForResult maps a finished result to its terminal run status.
func statusForResult(result *model.TakeoffResult) model.RunStatus {
	if result != nil && result.Success {
		return model.RunStatusComplete
	}
	return model.RunStatusFailed
}
