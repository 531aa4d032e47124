package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/narrascope/internal/metrics"
	"github.com/ppiankov/narrascope/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outJSON     string
	outMD       string
	scanTimeout time.Duration
	quiet       bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url|file>",
	Short: "Narrate a single page and report likely accessibility defects",
	Long: `Scan loads a page (URL or local HTML file) and:
- Produces the ordered announcement stream a screen reader would speak
- Falls back to a direct DOM scan when narration fails or stays silent
- Correlates the narration with structural checks into one issue list
- Optionally runs the axe-core rule engine and an AI review

Example:
  narrascope scan ./signup.html
  narrascope scan https://example.com --json report.json --md report.md
  narrascope scan https://example.com --root "#app" --wcag
  narrascope scan https://example.com --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 2*time.Minute, "overall scan timeout")
	scanCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not echo announcements while narrating")
	addCommonFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	logger.Debug("scanning",
		zap.String("target", target),
		zap.String("mode", cfg.Narration.Mode),
		zap.String("root", cfg.Narration.Root),
		zap.Bool("wcag", cfg.WCAG.Enabled),
		zap.Bool("cache", cfg.Cache.Enabled))

	var recorder *metrics.Recorder
	if cfg.Metrics.TextfilePath != "" {
		recorder = metrics.New()
	}

	opts := []pipeline.Option{pipeline.WithRecorder(recorder)}
	if !quiet {
		opts = append(opts, pipeline.WithProgress(progressPrinter()))
	}

	p, err := newPipeline(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	report, err := p.Scan(ctx, target)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	p.Renderer().PrintSummary(cmd.OutOrStdout(), report)

	if err := p.RenderReport(report, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	return nil
}
