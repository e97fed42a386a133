package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hakim/headerstat/internal/diff"
	"github.com/hakim/headerstat/internal/fetch"
	"github.com/hakim/headerstat/internal/models"
)

// fakeStore keeps a copy of every save so tests can inspect run transitions.
type fakeStore struct {
	mu      sync.Mutex
	saves   []models.RunRecord
	updates []models.RunStatus
	saveErr error
}

func (s *fakeStore) SaveRun(run *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, *run)
	return s.saveErr
}

func (s *fakeStore) UpdateRunStatus(_ string, status models.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, status)
	return nil
}

func (s *fakeStore) last() models.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[len(s.saves)-1]
}

// hostFetcher returns the headers configured for a host, or an error.
type hostFetcher map[string][]string

func (f hostFetcher) Fetch(_ context.Context, t models.Target) (*models.HeaderMap, error) {
	names, ok := f[t.Host]
	if !ok {
		return nil, &fetch.FetchError{Target: t, Op: "connect", Err: errors.New("connection refused")}
	}
	h := models.NewHeaderMap()
	for _, n := range names {
		h.Set(n, "v")
	}
	return h, nil
}

func TestRunAnalysis(t *testing.T) {
	store := &fakeStore{}
	fetcher := hostFetcher{
		"a.test": {"A", "B"},
		"b.test": {"A"},
	}
	var stages []string

	cfg := RunConfig{
		Source:        "unit",
		Targets:       []string{"a.test", "b.test", "down.test", "ftp://x.test", "out.other"},
		NumHeaders:    2,
		DefaultScheme: "https",
		Scope:         ScopeConfig{AllowedDomains: []string{"*.test"}},
		RunDir:        t.TempDir(),
		OnStageStart: func(name string, _, _ int) {
			stages = append(stages, name)
		},
	}

	res, err := RunAnalysis(context.Background(), cfg, fetcher, store)
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	wantSummary := models.RunSummary{Requested: 5, Invalid: 1, OutOfScope: 1, Attempted: 3, Analyzed: 2, Failed: 1}
	if diff := cmp.Diff(wantSummary, res.Run.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{StageLoad, StageResolve, StageFetch, StageAnalyze, StageReport}, stages); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}

	if res.NoData || res.Report == nil {
		t.Fatal("expected a report")
	}
	wantTop := []models.HeaderCount{{Name: "A", Count: 2, Percent: 100}, {Name: "B", Count: 1, Percent: 50}}
	if diff := cmp.Diff(wantTop, res.Report.TopN); diff != "" {
		t.Errorf("top headers mismatch (-want +got):\n%s", diff)
	}
	if res.Report.CoveragePercent != 50 {
		t.Errorf("coverage = %f, want 50", res.Report.CoveragePercent)
	}
	if len(res.Run.Failures) != 3 {
		t.Errorf("expected 3 failure records (invalid, out of scope, fetch), got %v", res.Run.Failures)
	}

	if len(store.saves) != 2 {
		t.Fatalf("expected initial and final saves, got %d", len(store.saves))
	}
	if store.saves[0].Status != models.StatusRunning {
		t.Errorf("initial save status = %s, want running", store.saves[0].Status)
	}
	final := store.last()
	if final.Status != models.StatusComplete || final.CompletedAt == nil {
		t.Errorf("final save should be complete with a completion time: %+v", final.RunMeta)
	}
	if final.RunDir == "" || final.RunDir != res.RunDir {
		t.Errorf("run dir not recorded: %q vs %q", final.RunDir, res.RunDir)
	}

	if _, err := os.Stat(filepath.Join(res.RunDir, "reports", "headers.md")); err != nil {
		t.Errorf("markdown report missing: %v", err)
	}
	loaded, err := diff.LoadReport(res.RunDir)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if diff := cmp.Diff(res.Report, loaded); diff != "" {
		t.Errorf("raw report mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAnalysisNoData(t *testing.T) {
	store := &fakeStore{}
	cfg := RunConfig{
		Targets:       []string{"down.test", "gone.test"},
		NumHeaders:    10,
		DefaultScheme: "https",
	}

	res, err := RunAnalysis(context.Background(), cfg, hostFetcher{}, store)
	if err != nil {
		t.Fatalf("an empty batch is not a run failure: %v", err)
	}
	if !res.NoData || res.Report != nil {
		t.Errorf("expected no-data result, got report %v", res.Report)
	}
	if res.Run.Summary.Analyzed != 0 || res.Run.Summary.Failed != 2 {
		t.Errorf("unexpected summary: %+v", res.Run.Summary)
	}
	final := store.last()
	if final.Status != models.StatusComplete || !final.NoData {
		t.Errorf("expected a complete no-data record, got %+v", final)
	}
	if res.RunDir != "" {
		t.Errorf("file output should be disabled without RunDir, got %q", res.RunDir)
	}
}

func TestRunAnalysisFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top-sites.csv")
	if err := os.WriteFile(path, []byte("1,a.test\n2,b.test\n3,c.test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := RunConfig{
		InputFile:     path,
		NumTargets:    2,
		NumHeaders:    1,
		DefaultScheme: "http",
	}
	res, err := RunAnalysis(context.Background(), cfg, hostFetcher{"a.test": {"Server"}, "b.test": {"Server"}, "c.test": {"X"}}, &fakeStore{})
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if res.Run.Source != "top-sites" {
		t.Errorf("source = %q, want top-sites", res.Run.Source)
	}
	if res.Run.Summary.Requested != 2 || res.Report.CoveragePercent != 100 {
		t.Errorf("expected 2 requested with full coverage, got %+v / %v", res.Run.Summary, res.Report)
	}
}

func TestRunAnalysisMissingInput(t *testing.T) {
	store := &fakeStore{}
	cfg := RunConfig{InputFile: filepath.Join(t.TempDir(), "missing.csv"), NumHeaders: 10}

	res, err := RunAnalysis(context.Background(), cfg, hostFetcher{}, store)
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if res == nil || res.Run.Status != models.StatusFailed {
		t.Errorf("expected failed run in result, got %+v", res)
	}
	if store.last().Status != models.StatusFailed {
		t.Errorf("final record status = %s, want failed", store.last().Status)
	}
}

func TestRunAnalysisRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RunConfig
		fetcher fetch.HeaderFetcher
		store   StoreInterface
	}{
		{"no input", RunConfig{NumHeaders: 1}, hostFetcher{}, &fakeStore{}},
		{"negative top n", RunConfig{Targets: []string{"a.test"}, NumHeaders: -1}, hostFetcher{}, &fakeStore{}},
		{"nil fetcher", RunConfig{Targets: []string{"a.test"}}, nil, &fakeStore{}},
		{"nil store", RunConfig{Targets: []string{"a.test"}}, hostFetcher{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RunAnalysis(context.Background(), tt.cfg, tt.fetcher, tt.store); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, models.Target) (*models.HeaderMap, error) {
	panic("fetcher exploded")
}

func TestRunAnalysisSurvivesPanickingFetcher(t *testing.T) {
	cfg := RunConfig{Targets: []string{"a.test"}, NumHeaders: 1, DefaultScheme: "https"}
	res, err := RunAnalysis(context.Background(), cfg, panicFetcher{}, &fakeStore{})
	if err != nil {
		t.Fatalf("a panicking fetch should only fail its target: %v", err)
	}
	if !res.NoData || len(res.FetchFailures) != 1 {
		t.Errorf("expected one failed target and no data, got %+v", res)
	}
}

func TestRunAnalysisFinalSaveFallsBack(t *testing.T) {
	store := &fakeStore{}
	cfg := RunConfig{Targets: []string{"a.test"}, NumHeaders: 1, DefaultScheme: "https"}

	// Initial save must succeed, so fail only after the run starts.
	cfg.OnStageStart = func(name string, _, _ int) {
		if name == StageLoad {
			store.mu.Lock()
			store.saveErr = errors.New("disk full")
			store.mu.Unlock()
		}
	}

	if _, err := RunAnalysis(context.Background(), cfg, hostFetcher{"a.test": {"A"}}, store); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if diff := cmp.Diff([]models.RunStatus{models.StatusComplete}, store.updates); diff != "" {
		t.Errorf("expected status-only fallback update (-want +got):\n%s", diff)
	}
}
