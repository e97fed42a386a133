package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hakim/headerstat/internal/analysis"
	"github.com/hakim/headerstat/internal/diff"
	"github.com/hakim/headerstat/internal/fetch"
	"github.com/hakim/headerstat/internal/loader"
	"github.com/hakim/headerstat/internal/logging"
	"github.com/hakim/headerstat/internal/models"
	"github.com/hakim/headerstat/internal/report"
	"github.com/hakim/headerstat/internal/storage"
	"github.com/hakim/headerstat/internal/target"
)

// StoreInterface is the minimal bbolt contract required by the orchestrator.
// Using an interface keeps the package testable without a real database.
type StoreInterface interface {
	SaveRun(run *models.RunRecord) error
	UpdateRunStatus(id string, status models.RunStatus) error
}

// Stage names in execution order.
const (
	StageLoad    = "load"
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StageAnalyze = "analyze"
	StageReport  = "report"
)

// RunConfig controls how RunAnalysis behaves for a single run.
type RunConfig struct {
	// Source names the target list in run history. Defaults to the input
	// file's base name.
	Source string

	// InputFile is the target list to read. Ignored when Targets is set.
	InputFile string

	// Targets, when non-empty, is used instead of reading InputFile.
	Targets []string

	// NumTargets caps how many entries are read from InputFile. Zero reads all.
	NumTargets int

	// NumHeaders is the size of the top-N ranking.
	NumHeaders int

	// DefaultScheme is prefixed to entries without a scheme.
	DefaultScheme string

	// Scope restricts which hosts may be contacted.
	Scope ScopeConfig

	// Coordinator controls fetch fan-out.
	Coordinator fetch.CoordinatorConfig

	// RunDir is the base directory for reports. Empty disables file output.
	RunDir string

	// Timeout caps the total wall-clock time of the run.
	// Zero means no timeout beyond the caller's context.
	Timeout time.Duration

	// OnStageStart is called immediately before each stage executes.
	// index is 0-based; total is the number of stages.
	OnStageStart func(name string, index, total int)

	// OnStageDone is called immediately after each stage returns (or panics).
	OnStageDone func(name string, index, total int, err error, elapsed time.Duration)
}

// RunResult summarises what happened after RunAnalysis returns.
type RunResult struct {
	// Run is the persisted record, including summary and report.
	Run *models.RunRecord

	// Invalid are entries that could not be resolved to a target.
	Invalid []target.InvalidEntry

	// OutOfScope are targets skipped by the scope rules.
	OutOfScope []models.Target

	// FetchFailures are targets that yielded no headers.
	FetchFailures []*fetch.FetchError

	// Report is nil when NoData is set.
	Report *models.AnalysisReport

	// NoData is set when no target returned headers.
	NoData bool

	// RunDir holds reports/ and raw/ output, empty when file output is disabled.
	RunDir string

	Elapsed time.Duration
}

// Stage is one step of a run. Stages share state through the runState they close over.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *runState) error
}

// runState carries data between stages.
type runState struct {
	cfg     RunConfig
	fetcher fetch.HeaderFetcher
	run     *models.RunRecord
	start   time.Time

	entries []string
	targets []models.Target
	fetched *fetch.FetchResult
	result  *RunResult
}

// RunAnalysis runs load, resolve, fetch, analyze and report for one target list.
//
// The run record is saved (StatusRunning) before the first stage and saved
// again with StatusComplete or StatusFailed once the run ends. A stage error
// aborts the run, except for the report stage, whose failures are logged as
// warnings. Each stage is wrapped in a deferred recover so a panicking stage
// becomes an error instead of crashing the process.
//
// A run in which no target returned headers is complete, not failed: the
// result has NoData set and no report.
func RunAnalysis(ctx context.Context, cfg RunConfig, fetcher fetch.HeaderFetcher, store StoreInterface) (*RunResult, error) {
	log := logging.NewCompLogger("pipeline")

	// ── 1. Validate required inputs ───────────────────────────────────────────
	if fetcher == nil {
		return nil, fmt.Errorf("pipeline: fetcher must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline: store must not be nil")
	}
	if cfg.InputFile == "" && len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("pipeline: an input file or explicit targets are required")
	}
	if cfg.NumHeaders < 0 {
		return nil, fmt.Errorf("pipeline: %w", analysis.ErrInvalidTopN)
	}
	if cfg.Source == "" {
		cfg.Source = "adhoc"
		if cfg.InputFile != "" && len(cfg.Targets) == 0 {
			cfg.Source = storage.SourceName(cfg.InputFile)
		}
	}

	// ── 2. Apply optional timeout ─────────────────────────────────────────────
	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// ── 3. Create the run record ──────────────────────────────────────────────
	run := models.NewRun(cfg.Source)
	run.Status = models.StatusRunning
	if err := store.SaveRun(run); err != nil {
		return nil, fmt.Errorf("pipeline: saving initial run record: %w", err)
	}
	fmt.Printf("[*] Run ID: %s\n", run.ID)

	st := &runState{
		cfg:     cfg,
		fetcher: fetcher,
		run:     run,
		result:  &RunResult{Run: run},
	}

	// ── 4. Execute stages ─────────────────────────────────────────────────────
	stages := []Stage{
		{Name: StageLoad, Run: loadStage},
		{Name: StageResolve, Run: resolveStage},
		{Name: StageFetch, Run: fetchStage},
		{Name: StageAnalyze, Run: analyzeStage},
		{Name: StageReport, Run: reportStage},
	}

	st.start = time.Now()
	var runErr error
	for i, stage := range stages {
		if cfg.OnStageStart != nil {
			cfg.OnStageStart(stage.Name, i, len(stages))
		}

		stageStart := time.Now()
		err := runStageIsolated(runCtx, stage, st)
		elapsed := time.Since(stageStart)

		if cfg.OnStageDone != nil {
			cfg.OnStageDone(stage.Name, i, len(stages), err, elapsed)
		}
		if err == nil {
			log.WithField("stage", stage.Name).Debugf("stage complete in %s", elapsed.Round(time.Millisecond))
			continue
		}

		if stage.Name == StageReport {
			fmt.Printf("[!] Warning: writing reports failed: %v\n", err)
			continue
		}
		runErr = fmt.Errorf("%s: %w", stage.Name, err)
		break
	}

	st.result.Elapsed = time.Since(st.start)
	run.Elapsed = st.result.Elapsed

	// ── 5. Persist the final record ───────────────────────────────────────────
	now := time.Now()
	run.CompletedAt = &now
	run.Status = models.StatusComplete
	if runErr != nil {
		run.Status = models.StatusFailed
	}
	if err := store.SaveRun(run); err != nil {
		fmt.Printf("[!] Warning: could not save final run record: %v\n", err)
		// Fall back to a status-only update so the run is not left "running".
		if err := store.UpdateRunStatus(run.ID, run.Status); err != nil {
			fmt.Printf("[!] Warning: could not update final run status: %v\n", err)
		}
	}

	if runErr != nil {
		return st.result, fmt.Errorf("pipeline: %w", runErr)
	}

	fmt.Printf("[*] Run finished in %s: %d of %d targets analyzed\n",
		st.result.Elapsed.Round(time.Millisecond), run.Summary.Analyzed, run.Summary.Requested)

	return st.result, nil
}

// runStageIsolated runs a single stage inside a deferred recover so that a
// panic in stage code is caught and returned as an error rather than crashing
// the orchestrator process.
func runStageIsolated(ctx context.Context, s Stage, st *runState) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("stage %q panicked: %v", s.Name, r)
		}
	}()
	return s.Run(ctx, st)
}

// ── Stages ────────────────────────────────────────────────────────────────────

func loadStage(_ context.Context, st *runState) error {
	if len(st.cfg.Targets) > 0 {
		st.entries = st.cfg.Targets
		if n := st.cfg.NumTargets; n > 0 && len(st.entries) > n {
			st.entries = st.entries[:n]
		}
	} else {
		entries, err := loader.ReadTargetList(st.cfg.InputFile, st.cfg.NumTargets)
		if err != nil {
			return err
		}
		st.entries = entries
	}
	st.run.Summary.Requested = len(st.entries)
	return nil
}

func resolveStage(_ context.Context, st *runState) error {
	targets, invalid := target.ResolveAll(st.entries, st.cfg.DefaultScheme)
	st.result.Invalid = invalid
	st.run.Summary.Invalid = len(invalid)
	for _, inv := range invalid {
		st.run.Failures = append(st.run.Failures, models.FailureRecord{Input: inv.Input, Reason: inv.Err.Error()})
	}

	for _, t := range targets {
		if err := st.cfg.Scope.Check(t.Host); err != nil {
			st.result.OutOfScope = append(st.result.OutOfScope, t)
			st.run.Failures = append(st.run.Failures, models.FailureRecord{Input: t.Raw, Reason: err.Error()})
			continue
		}
		st.targets = append(st.targets, t)
	}
	st.run.Summary.OutOfScope = len(st.result.OutOfScope)

	if len(invalid) > 0 || len(st.result.OutOfScope) > 0 {
		fmt.Printf("[!] Warning: skipped %d invalid and %d out-of-scope entries\n",
			len(invalid), len(st.result.OutOfScope))
	}
	return nil
}

func fetchStage(ctx context.Context, st *runState) error {
	res := fetch.FetchAll(ctx, st.fetcher, st.targets, st.cfg.Coordinator)
	st.fetched = res
	st.result.FetchFailures = res.Failures

	st.run.Summary.Attempted = res.Attempted
	st.run.Summary.Analyzed = len(res.Batch)
	st.run.Summary.Failed = len(res.Failures)
	for _, fe := range res.Failures {
		st.run.Failures = append(st.run.Failures, models.FailureRecord{Input: fe.Target.String(), Reason: failureReason(fe)})
	}

	fmt.Printf("[+] Fetched headers from %d of %d targets\n", len(res.Batch), res.Attempted)
	return nil
}

func analyzeStage(_ context.Context, st *runState) error {
	rep, err := analysis.Analyze(st.fetched.Batch, st.cfg.NumHeaders)
	if errors.Is(err, analysis.ErrEmptyBatch) {
		st.result.NoData = true
		st.run.NoData = true
		fmt.Println("[!] Warning: no target returned headers, nothing to analyze")
		return nil
	}
	if err != nil {
		return err
	}
	st.result.Report = rep
	st.run.Report = rep
	return nil
}

func reportStage(_ context.Context, st *runState) error {
	if st.cfg.RunDir == "" {
		return nil
	}

	runDir, err := storage.CreateRunDir(st.cfg.RunDir, st.run.Source, st.run.StartedAt)
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	st.run.RunDir = runDir
	st.run.Elapsed = time.Since(st.start)
	st.result.RunDir = runDir
	fmt.Printf("[*] Created run directory: %s\n", runDir)

	var errs []error
	if err := report.WriteHeaderReport(st.run, filepath.Join(runDir, "reports", "headers.md")); err != nil {
		errs = append(errs, err)
	}

	responses := make([]report.RawResponse, len(st.fetched.Batch))
	for i, h := range st.fetched.Batch {
		responses[i] = report.RawResponse{Target: st.fetched.Targets[i].String(), Headers: h}
	}
	if err := report.WriteRawOutput(st.run, responses, filepath.Join(runDir, "raw", diff.RawFile)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// failureReason drops the target from a FetchError message since the record
// already names it.
func failureReason(fe *fetch.FetchError) string {
	if fe.Op == "" {
		return fe.Err.Error()
	}
	return fe.Op + ": " + fe.Err.Error()
}
