package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchJSON     string
	watchMD       string
	watchDebounce time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-scan a local HTML file every time it changes",
	Long: `Watch scans a local HTML file, then scans it again after every save.
A save during a running scan cancels that scan and starts over with the new
content. Press Ctrl+C to stop.

Example:
  narrascope watch ./signup.html
  narrascope watch ./signup.html --md signup.md --mode direct`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchJSON, "json", "", "rewrite this JSON report after each scan")
	watchCmd.Flags().StringVar(&watchMD, "md", "", "rewrite this Markdown report after each scan")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "quiet period before re-scanning")
	addCommonFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	out := cmd.OutOrStdout()
	onReport := func(report *model.Report) {
		fmt.Fprintf(out, "\n[%s]\n", report.FetchedAt.Local().Format("15:04:05"))
		p.Renderer().PrintSummary(out, report)
		if err := p.RenderReport(report, watchJSON, watchMD); err != nil {
			logger.Warn("render failed", zap.Error(err))
		}
	}

	w, err := watch.New(args[0], p, onReport, watch.WithDebounce(watchDebounce), watch.WithLogger(logger))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
