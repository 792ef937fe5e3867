package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/archive/cds"
	"github.com/italolelis/era5_downloader/internal/archive/rda"
	"github.com/italolelis/era5_downloader/internal/batch"
	"github.com/italolelis/era5_downloader/internal/catalog"
	"github.com/italolelis/era5_downloader/internal/config"
	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/fetch"
	"github.com/italolelis/era5_downloader/internal/logctx"
	"github.com/italolelis/era5_downloader/internal/plan"
)

// runOptions is the run-shaped input parsed from CLI flags.
type runOptions struct {
	year         int
	month        int
	day          int
	startDay     int
	endDay       int
	vars         string
	area         string
	outDir       string
	skipPressure bool
	skipSingle   bool
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	var opts runOptions

	flag.IntVar(&opts.year, "year", 0, "year to download (e.g. 2014)")
	flag.IntVar(&opts.month, "month", 0, "month to download (1-12)")
	flag.IntVar(&opts.day, "day", 0, "single day to download (1-31)")
	flag.IntVar(&opts.startDay, "start-day", 0, "start of inclusive day range")
	flag.IntVar(&opts.endDay, "end-day", 0, "end of inclusive day range")
	flag.StringVar(&opts.vars, "vars", "", "comma-separated variable mnemonics (e.g. Z,T,U,V); default all")
	flag.StringVar(&opts.area, "area", "", "geographic subset N,W,S,E (cds archive only); default global")
	flag.StringVar(&opts.outDir, "out-dir", "", "output directory (overrides OUTPUT_DIR)")
	flag.BoolVar(&opts.skipPressure, "skip-pressure", false, "skip pressure-level downloads")
	flag.BoolVar(&opts.skipSingle, "skip-single", false, "skip single-level downloads")
	flag.Parse()

	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("era5 downloader starting...", "archive", cfg.Archive, "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg, opts); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	logger := logctx.LoggerFromContext(ctx)

	// A gap between the variable tables and the short-name table would
	// surface as a dead URL mid-run; catch it before any transfer.
	if err := catalog.Verify(); err != nil {
		return fmt.Errorf("variable table inconsistency: %w", err)
	}

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	filter := parseVars(opts.vars)

	batches, creds, err := buildBatches(cfg, opts, req, filter)
	if err != nil {
		return err
	}

	// Fail the whole run up front if no credential source can serve the
	// selected archive at all.
	if _, err := creds.Resolve(); err != nil {
		return fmt.Errorf("no usable credentials for %s archive (set the environment pair or %s): %w",
			cfg.Archive, cfg.CredentialsFile, err)
	}

	logger.Info("run configuration",
		"archive", cfg.Archive,
		"period", fmt.Sprintf("%04d-%02d", req.Year, req.Month),
		"days", fmt.Sprintf("%d-%d", req.StartDay, req.EndDay),
		"variables", orAll(opts.vars),
		"area", orGlobal(opts.area),
		"output_dir", cfg.OutputDir,
		"max_parallel", cfg.MaxParallel,
	)

	start := time.Now()

	var total batch.Result

	for _, b := range batches {
		agg := batch.NewAggregator(b.name, b.locator, b.fetcher, b.destDir, cfg.MaxParallel)
		total = total.Merge(agg.Run(ctx, b.units))
	}

	logger.Info("run complete",
		"downloaded", total.Downloaded,
		"skipped", total.Skipped,
		"failed", total.Failed,
		"elapsed", time.Since(start).Round(time.Second).String(),
	)

	if total.Failed > 0 {
		return fmt.Errorf("%d units failed", total.Failed)
	}

	return nil
}

// batchSpec bundles everything one Batch Aggregator invocation needs.
type batchSpec struct {
	name    string
	locator archive.Locator
	fetcher batch.Fetcher
	destDir string
	units   []plan.Unit
}

// buildBatches is an abstract factory over the two archives: it wires the
// right locators, retriever and credential chain for the selected archive
// and expands the request into that archive's unit granularity.
func buildBatches(cfg *config.Config, opts runOptions, req plan.Request, filter []string) ([]batchSpec, credentials.Source, error) {
	switch cfg.Archive {
	case "rda":
		return buildRDABatches(cfg, opts, req, filter)
	case "cds":
		return buildCDSBatches(cfg, opts, req, filter)
	}

	return nil, nil, fmt.Errorf("invalid archive: %s", cfg.Archive)
}

func buildRDABatches(cfg *config.Config, opts runOptions, req plan.Request, filter []string) ([]batchSpec, credentials.Source, error) {
	if opts.area != "" {
		return nil, nil, errors.New("-area is only supported by the cds archive")
	}

	creds := credentials.Chain{
		credentials.EnvSource{IdentityVar: "RDA_EMAIL", SecretVar: "RDA_KEY"},
		credentials.FileSource{Path: cfg.CredentialsFile, Section: "rda"},
	}

	locator := rda.NewLocator(cfg.RDA.BaseURL)
	executor := fetch.NewExecutor("rda", rda.NewClient(), creds, cfg.FetchTimeout, cfg.FetchAttempts)

	var batches []batchSpec

	if !opts.skipPressure {
		vars, err := catalog.Filter(catalog.PressureLevelVars, filter)
		if err != nil {
			return nil, nil, err
		}

		batches = append(batches, batchSpec{
			name:    "pressure_levels",
			locator: locator,
			fetcher: executor,
			destDir: filepath.Join(cfg.OutputDir, "pressure_levels"),
			units:   plan.PerVariableDaily(req, vars),
		})
	}

	if !opts.skipSingle {
		vars, err := catalog.Filter(catalog.SingleLevelVars, filter)
		if err != nil {
			return nil, nil, err
		}

		batches = append(batches, batchSpec{
			name:    "single_levels",
			locator: locator,
			fetcher: executor,
			destDir: filepath.Join(cfg.OutputDir, "single_levels"),
			units:   plan.PerVariableMonthly(req, vars),
		})
	}

	return batches, creds, nil
}

func buildCDSBatches(cfg *config.Config, opts runOptions, req plan.Request, filter []string) ([]batchSpec, credentials.Source, error) {
	if len(filter) > 0 {
		return nil, nil, errors.New("-vars is only supported by the rda archive; cds requests carry a fixed variable list")
	}

	var area *cds.Area

	if opts.area != "" {
		parsed, err := cds.ParseArea(opts.area)
		if err != nil {
			return nil, nil, err
		}

		area = parsed
	}

	creds := credentials.Chain{
		credentials.EnvSource{IdentityVar: "CDS_UID", SecretVar: "CDS_KEY"},
		credentials.FileSource{Path: cfg.CredentialsFile, Section: "cds"},
	}

	client := cds.NewClient(cfg.CDS.BaseURL, cfg.CDS.PollInterval)
	executor := fetch.NewExecutor("cds", client, creds, cfg.FetchTimeout, cfg.FetchAttempts)

	var batches []batchSpec

	if !opts.skipPressure {
		batches = append(batches, batchSpec{
			name:    "p_levels",
			locator: cds.NewLocator(cfg.CDS.BaseURL, cds.DatasetPressureLevels, catalog.PressureLevels, area),
			fetcher: executor,
			destDir: filepath.Join(cfg.OutputDir, "p_levels"),
			units:   plan.BulkDaily(req),
		})
	}

	if !opts.skipSingle {
		batches = append(batches, batchSpec{
			name:    "s_levels",
			locator: cds.NewLocator(cfg.CDS.BaseURL, cds.DatasetSingleLevels, catalog.SingleLevel, area),
			fetcher: executor,
			destDir: filepath.Join(cfg.OutputDir, "s_levels"),
			units:   plan.BulkDaily(req),
		})
	}

	return batches, creds, nil
}

// buildRequest turns the day flags into a validated request: -day wins over
// the range pair, and an omitted range means the whole month.
func buildRequest(opts runOptions) (plan.Request, error) {
	if opts.year == 0 || opts.month == 0 {
		return plan.Request{}, errors.New("-year and -month are required")
	}

	start, end := opts.startDay, opts.endDay

	if opts.day != 0 {
		if start != 0 || end != 0 {
			return plan.Request{}, errors.New("-day cannot be combined with -start-day/-end-day")
		}

		start, end = opts.day, opts.day
	}

	if start == 0 && end == 0 {
		start = 1
		end = plan.TemporalKey{Year: opts.year, Month: time.Month(opts.month)}.LastDay()
	}

	return plan.NewRequest(opts.year, time.Month(opts.month), start, end)
}

func parseVars(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	vars := make([]string, 0, len(parts))

	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			vars = append(vars, v)
		}
	}

	return vars
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}

	return s
}

func orGlobal(s string) string {
	if s == "" {
		return "global"
	}

	return s
}
