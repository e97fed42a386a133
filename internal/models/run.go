package models

import (
	"time"

	"github.com/google/uuid"
)

// RunMeta contains metadata about an analysis run
type RunMeta struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      RunStatus  `json:"status"`
	RunDir      string     `json:"run_dir,omitempty"`
}

// RunSummary counts how many of the requested targets reached each stage.
type RunSummary struct {
	Requested  int `json:"requested"`
	Invalid    int `json:"invalid"`
	OutOfScope int `json:"out_of_scope"`
	Attempted  int `json:"attempted"`
	Analyzed   int `json:"analyzed"`
	Failed     int `json:"failed"`
}

// FailureRecord is a persisted, display-ready form of a per-target failure
type FailureRecord struct {
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// RunRecord is a complete run as persisted in the run store
type RunRecord struct {
	RunMeta
	Summary  RunSummary      `json:"summary"`
	Report   *AnalysisReport `json:"report,omitempty"`
	NoData   bool            `json:"no_data"`
	Failures []FailureRecord `json:"failures,omitempty"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// NewRun creates a new run record with initialized metadata
func NewRun(source string) *RunRecord {
	return &RunRecord{
		RunMeta: RunMeta{
			ID:        uuid.New().String(),
			Source:    source,
			StartedAt: time.Now(),
			Status:    StatusPending,
		},
		Failures: []FailureRecord{},
	}
}
