package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hakim/headerstat/internal/models"
)

// RawResponse is the headers one target returned.
type RawResponse struct {
	Target  string            `json:"target"`
	Headers *models.HeaderMap `json:"headers"`
}

// RawOutput is the machine-readable form of a run written to raw/headers.json.
type RawOutput struct {
	RunID     string                 `json:"run_id"`
	Source    string                 `json:"source"`
	StartedAt time.Time              `json:"started_at"`
	Summary   models.RunSummary      `json:"summary"`
	Report    *models.AnalysisReport `json:"report"`
	NoData    bool                   `json:"no_data"`
	Responses []RawResponse          `json:"responses"`
	Failures  []models.FailureRecord `json:"failures"`
}

// WriteRawOutput writes the run and every collected response as indented JSON.
func WriteRawOutput(run *models.RunRecord, responses []RawResponse, outputPath string) error {
	out := RawOutput{
		RunID:     run.ID,
		Source:    run.Source,
		StartedAt: run.StartedAt,
		Summary:   run.Summary,
		Report:    run.Report,
		NoData:    run.NoData,
		Responses: responses,
		Failures:  run.Failures,
	}
	if out.Responses == nil {
		out.Responses = []RawResponse{}
	}
	if out.Failures == nil {
		out.Failures = []models.FailureRecord{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling raw output: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing raw output to %s: %w", outputPath, err)
	}
	return nil
}
