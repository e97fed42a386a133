package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hakim/headerstat/internal/models"
)

func TestSendCompletion(t *testing.T) {
	var got completionPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	run := models.NewRun("top-1m")
	run.Status = models.StatusComplete
	run.Summary = models.RunSummary{Requested: 10, Attempted: 10, Analyzed: 8, Failed: 2}
	result := &RunResult{
		Run: run,
		Report: &models.AnalysisReport{
			TopN:            []models.HeaderCount{{Name: "Date", Count: 8, Percent: 100}},
			CoveragePercent: 100,
		},
		Elapsed: 2 * time.Second,
	}

	n := &NotifyConfig{WebhookURL: srv.URL}
	if err := n.SendCompletion(context.Background(), result); err != nil {
		t.Fatalf("SendCompletion: %v", err)
	}

	want := completionPayload{
		Source:          "top-1m",
		RunID:           run.ID,
		Status:          models.StatusComplete,
		Summary:         run.Summary,
		TopHeaders:      result.Report.TopN,
		CoveragePercent: 100,
		ElapsedSeconds:  2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSendCompletionErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := &RunResult{Run: models.NewRun("x"), NoData: true}

	if err := (&NotifyConfig{WebhookURL: srv.URL}).SendCompletion(context.Background(), result); err == nil {
		t.Error("expected error for non-2xx status")
	}
	if err := (&NotifyConfig{}).SendCompletion(context.Background(), result); err != nil {
		t.Errorf("empty webhook should be a no-op, got %v", err)
	}
	var nilNotify *NotifyConfig
	if err := nilNotify.SendCompletion(context.Background(), result); err != nil {
		t.Errorf("nil config should be a no-op, got %v", err)
	}
}
