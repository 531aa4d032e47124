package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ppiankov/narrascope/internal/metrics"
	"github.com/ppiankov/narrascope/internal/pipeline"
	"github.com/ppiankov/narrascope/internal/util"
	"github.com/ppiankov/narrascope/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	globPattern  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Scan many pages in parallel",
	Long: `Batch scans many targets concurrently and writes one JSON and one
Markdown report per target.

Targets come from a file (one URL or path per line, # for comments) or from
a glob of local HTML files (** matches nested directories).

Example:
  narrascope batch urls.txt
  narrascope batch urls.txt --concurrency 8 --output-dir ./reports
  narrascope batch --glob "site/**/*.html"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./narrascope-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&globPattern, "glob", "", "scan local files matching this pattern instead of a targets file")
	addCommonFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (globPattern == "") {
		return errors.New("provide either a targets file or --glob")
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	var targets []string
	if globPattern != "" {
		targets, err = worker.ExpandGlob(globPattern)
	} else {
		targets, err = worker.ReadTargetsFromFile(args[0])
	}
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no targets to scan")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	recorder := metrics.New()
	p, err := newPipeline(cfg, pipeline.WithRecorder(recorder))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	opts := []worker.BatchOption{
		worker.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		worker.WithBatchLogger(logger),
	}
	if cfg.Fetch.RespectRobots {
		opts = append(opts, worker.WithCrawlDelays(util.NewRobotsChecker(cfg.HTTP.UserAgent, nil)))
	}

	// Each job gets its own fork so concurrent scans do not supersede each other
	processor := worker.NewBatchProcessor(func() worker.Scanner { return p.Fork() }, cfg.Concurrency.Workers, opts...)

	out := cmd.OutOrStdout()
	fmt.Fprintf(os.Stderr, "Scanning %d targets with %d workers...\n\n", len(targets), cfg.Concurrency.Workers)

	results := processor.ProcessTargets(ctx, targets)

	succeeded, failed := 0, 0
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Target, result.Error)
			continue
		}

		jsonPath, mdPath := reportPaths(outputDir, result.Index, result.Report)
		if err := p.RenderReport(result.Report, jsonPath, mdPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Target, err)
			continue
		}

		succeeded++
		p.Renderer().PrintSummary(out, result.Report)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n",
		len(results), succeeded, failed, outputDir)

	if cfg.Metrics.TextfilePath != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if failed > 0 && succeeded == 0 {
		return fmt.Errorf("all %d scans failed", failed)
	}
	return nil
}
