package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/michelemendel/haintsec/internal/aggregate"
	"github.com/michelemendel/haintsec/internal/config"
	"github.com/michelemendel/haintsec/internal/metrics"
	"github.com/michelemendel/haintsec/internal/pipeline"
	"github.com/michelemendel/haintsec/internal/report"
	"github.com/michelemendel/haintsec/internal/scan"
	"github.com/michelemendel/haintsec/internal/ui"
)

const version = "1.0.0"

type options struct {
	url           string
	configFile    string
	outputDir     string
	timeout       time.Duration
	noColor       bool
	verbose       bool
	skipPreflight bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("haintsec", flag.ContinueOnError)
	fs.StringVar(&o.url, "url", "", "Target URL to scan (required)")
	fs.StringVar(&o.configFile, "config", config.DefaultFile, "Path to the configuration file")
	fs.StringVar(&o.outputDir, "output-dir", "", "Directory for the reports (overrides output_dir)")
	fs.DurationVar(&o.timeout, "timeout", 0, "Timeout per stage (overrides timeout_per_stage)")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable coloured output")
	fs.BoolVar(&o.verbose, "verbose", false, "Echo the output of the external tools")
	fs.BoolVar(&o.skipPreflight, "skip-preflight", false, "Do not look up the external tools before scanning")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.url == "" && fs.NArg() > 0 {
		o.url = fs.Arg(0)
	}
	return o, nil
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(o options) (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.timeout != 0 {
		cfg.TimeoutPerStage = o.timeout
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger opens the JSON log sink. The returned closer is never nil.
func newLogger(path string, verbose bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, io.NopCloser(nil), fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

// validateTools checks all external tools and prints their status. Missing
// tools do not stop the run; their stage fails instead.
func validateTools(console *ui.Console, logger *slog.Logger, tools scan.Tools) scan.Tools {
	console.Info("=== Tool Validation ===")
	resolved, statuses := config.ResolveTools(tools)
	missing := 0
	for _, st := range statuses {
		console.ToolStatus(st.Name, st.Path, st.Available)
		logger.Info("tool checked", "tool", st.Name, "available", st.Available, "path", st.Path)
		if !st.Available {
			missing++
		}
	}
	if missing > 0 {
		console.Warn("%d tool(s) missing: the stages that need them will be reported as failed.", missing)
	}
	console.Info("=======================")
	return resolved
}

// consoleObserver adapts the console to pipeline.Observer.
type consoleObserver struct {
	console *ui.Console
	domain  string
}

func (o consoleObserver) StageStarted(s scan.Stage) { o.console.StageStarted(o.domain, s) }

func (o consoleObserver) StageFinished(s scan.Summary) { o.console.StageFinished(o.domain, s) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	console := ui.NewConsole(stdout, o.noColor)
	console.Banner(version)

	if o.url == "" {
		console.Error("a target URL is required: haintsec -url https://example.com")
		return 1
	}

	cfg, err := loadConfig(o)
	if err != nil {
		console.Error("Failed to load config: %v", err)
		return 1
	}

	logger, closer, err := newLogger(cfg.LogFile, o.verbose)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if _, added, err := config.NormalizeURL(o.url); err == nil && added {
		console.Warn("No scheme given, using https://%s", o.url)
	}
	req, err := config.BuildRequest(cfg, o.url, uuid.NewString())
	if err != nil {
		console.Error("Invalid target: %v", err)
		logger.Error("invalid target", "url", o.url, "error", err)
		return 1
	}
	if !o.skipPreflight {
		req.Tools = validateTools(console, logger, req.Tools)
	}

	logger.Info("scan started", "run_id", req.RunID, "target", req.TargetURL, "domain", req.Domain, "timeout_per_stage", req.TimeoutPerStage)
	console.Info("%s: Starting scan of %s (run %s)", req.Domain, req.TargetURL, req.RunID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stageOpts := stageOptions(cfg)
	if o.verbose {
		stageOpts.OnLine = console.ToolOutput
	}
	runner := pipeline.NewRunner(pipeline.NewStages(stageOpts, logger), logger, consoleObserver{console: console, domain: req.Domain})

	start := time.Now()
	outcomes := runner.Run(ctx, req)
	console.Summary(outcomes.Summaries())
	logger.Info("scan finished", "run_id", req.RunID, "elapsed", time.Since(start))

	if cfg.MetricsFile != "" {
		writeMetrics(console, logger, cfg.MetricsFile, outcomes)
	}

	rep := aggregate.Build(req, outcomes, time.Now())
	res, err := report.NewWriter(cfg.OutputDir).Write(rep)
	if err != nil {
		console.Error("Failed to write report: %v", err)
		logger.Error("report failed", "run_id", req.RunID, "error", err)
		console.Elapsed(time.Since(start))
		return 1
	}
	if res.ExportErr != nil {
		console.Warn("Error generating PDF: %v", res.ExportErr)
		logger.Error("pdf export failed", "run_id", req.RunID, "document", res.Document, "error", res.ExportErr)
	}
	logger.Info("reports generated", "run_id", req.RunID, "document", res.Document, "export", res.Export)
	console.Reports(res.Document, res.Export)
	console.Elapsed(time.Since(start))
	return 0
}

func writeMetrics(console *ui.Console, logger *slog.Logger, path string, outcomes scan.Outcomes) {
	rec, err := metrics.NewRecorder()
	if err == nil {
		rec.Observe(outcomes)
		err = rec.WriteTextfile(path)
	}
	if err != nil {
		console.Warn("Failed to write metrics: %v", err)
		logger.Error("metrics failed", "path", path, "error", err)
	}
}
