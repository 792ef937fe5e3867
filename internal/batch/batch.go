package batch

import (
	"context"
	"sync/atomic"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/fetch"
	"github.com/italolelis/era5_downloader/internal/logctx"
	"github.com/italolelis/era5_downloader/internal/plan"
	"golang.org/x/sync/errgroup"
)

// Result counts the outcomes of a batch. Merging is associative and
// commutative, so per-batch results sum cleanly across the run.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
}

func (r Result) Merge(o Result) Result {
	return Result{
		Downloaded: r.Downloaded + o.Downloaded,
		Skipped:    r.Skipped + o.Skipped,
		Failed:     r.Failed + o.Failed,
	}
}

// Fetcher is the slice of the transfer executor the aggregator needs.
type Fetcher interface {
	Fetch(ctx context.Context, t archive.Target, destDir string) fetch.Outcome
}

// Aggregator resolves and fetches every unit of one variable group,
// folding outcomes into a Result. A failing unit never aborts the batch.
type Aggregator struct {
	name        string
	locator     archive.Locator
	fetcher     Fetcher
	destDir     string
	maxParallel int
}

func NewAggregator(name string, locator archive.Locator, fetcher Fetcher, destDir string, maxParallel int) *Aggregator {
	if maxParallel < 1 {
		maxParallel = 1
	}

	return &Aggregator{
		name:        name,
		locator:     locator,
		fetcher:     fetcher,
		destDir:     destDir,
		maxParallel: maxParallel,
	}
}

// Run processes all units and returns the batch totals. Units are
// independent by construction (the enumerator never produces duplicate
// targets), so they may run in parallel; counters are atomic.
func (a *Aggregator) Run(ctx context.Context, units []plan.Unit) Result {
	logger := logctx.LoggerFromContext(ctx).With("batch", a.name)

	logger.Info("starting batch", "unit_count", len(units), "target_dir", a.destDir)

	var downloaded, skipped, failed atomic.Int64

	wg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, a.maxParallel)

	for i := range units {
		unit := units[i]
		sem <- struct{}{}

		wg.Go(func() error {
			defer func() { <-sem }() // release the slot

			unitLogger := logger.With("unit", unit.Key.String())
			if unit.Variable != nil {
				unitLogger = unitLogger.With("variable", unit.Variable.Mnemonic)
			}

			target, err := a.locator.Locate(unit)
			if err != nil {
				unitLogger.Error("failed to resolve target", "err", err)
				failed.Add(1)

				return nil
			}

			unitLogger.Info("processing unit", "file", target.Filename)

			outcome := a.fetcher.Fetch(logctx.WithLogger(ctx, unitLogger), target, a.destDir)

			switch outcome.Status {
			case fetch.StatusDownloaded:
				downloaded.Add(1)
			case fetch.StatusSkipped:
				skipped.Add(1)
			case fetch.StatusFailed:
				unitLogger.Error("unit failed", "file", target.Filename, "err", outcome.Err)
				failed.Add(1)
			}

			return nil
		})
	}

	// Workers record failures instead of returning them, so Wait only
	// observes context cancellation.
	_ = wg.Wait()

	result := Result{
		Downloaded: int(downloaded.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}

	logger.Info("batch summary",
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	return result
}
