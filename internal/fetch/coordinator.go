package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/hakim/headerstat/internal/logging"
	"github.com/hakim/headerstat/internal/models"
)

// DefaultConcurrency is used when CoordinatorConfig.Concurrency is not positive.
const DefaultConcurrency = 100

// HeaderFetcher fetches the headers of a single target.
type HeaderFetcher interface {
	Fetch(ctx context.Context, t models.Target) (*models.HeaderMap, error)
}

// CoordinatorConfig controls the fan-out of FetchAll.
type CoordinatorConfig struct {
	// Concurrency caps the number of fetches, and so open connections, in flight.
	Concurrency int
}

// FetchResult is the outcome of a FetchAll call.
type FetchResult struct {
	// Batch holds the successful header maps in input order.
	Batch models.Batch
	// Targets[i] is the target Batch[i] was fetched from.
	Targets []models.Target
	// Failures holds one error per target that did not yield headers, in input order.
	Failures  []*FetchError
	Attempted int
	Elapsed   time.Duration
}

// outcome is what each fetch goroutine sends to the collector.
type outcome struct {
	index   int
	target  models.Target
	headers *models.HeaderMap
	err     *FetchError
}

// FetchAll fetches every target concurrently and collects the results.
//
// Each target is independent: a failure only removes that target from the
// batch, and one slow or failed target never cancels its siblings. FetchAll
// returns once every launched fetch has finished. If ctx is cancelled before a
// target could be launched, that target is recorded as failed with ctx's error.
func FetchAll(ctx context.Context, f HeaderFetcher, targets []models.Target, cfg CoordinatorConfig) *FetchResult {
	log := logging.NewCompLogger("coordinator")
	start := time.Now()

	limit := cfg.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	// Buffered for every target so no fetch goroutine ever blocks on send.
	outcomes := make(chan outcome, len(targets))
	swg := sizedwaitgroup.New(limit)

	for i, t := range targets {
		if err := swg.AddWithContext(ctx); err != nil {
			outcomes <- outcome{index: i, err: &FetchError{Target: t, Op: "fetch", Err: err}}
			continue
		}
		go func(i int, t models.Target) {
			defer swg.Done()
			outcomes <- runIsolated(ctx, f, i, t)
		}(i, t)
	}

	swg.Wait()
	close(outcomes)

	// Single collector: outcomes are placed by input index, then flattened.
	ordered := make([]outcome, len(targets))
	for o := range outcomes {
		ordered[o.index] = o
	}

	result := &FetchResult{
		Batch:     make(models.Batch, 0, len(targets)),
		Targets:   make([]models.Target, 0, len(targets)),
		Attempted: len(targets),
	}
	for _, o := range ordered {
		if o.err != nil {
			result.Failures = append(result.Failures, o.err)
			log.WithField("target", o.err.Target.String()).Debugf("fetch failed: %v", o.err.Err)
			continue
		}
		result.Batch = append(result.Batch, o.headers)
		result.Targets = append(result.Targets, o.target)
	}
	result.Elapsed = time.Since(start)

	log.Infof("fetched %d/%d targets in %s (%d failed)",
		len(result.Batch), result.Attempted, result.Elapsed.Round(time.Millisecond), len(result.Failures))

	return result
}

// runIsolated runs one fetch, converting errors and panics into a FetchError
func runIsolated(ctx context.Context, f HeaderFetcher, i int, t models.Target) (o outcome) {
	o.index, o.target = i, t
	defer func() {
		if r := recover(); r != nil {
			o.headers = nil
			o.err = &FetchError{Target: t, Op: "fetch", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	headers, err := f.Fetch(ctx, t)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{Target: t, Op: "fetch", Err: err}
		}
		o.err = fe
		return o
	}
	if headers == nil {
		headers = models.NewHeaderMap()
	}
	o.headers = headers
	return o
}
