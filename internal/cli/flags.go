package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps shared command flags to config keys
var flagKeys = map[string]string{
	"timeout":          "http.timeout",
	"ua":               "http.user_agent",
	"max-bytes":        "http.max_body_bytes",
	"insecure":         "http.insecure_tls",
	"http-proxy":       "http.http_proxy",
	"https-proxy":      "http.https_proxy",
	"no-proxy":         "http.no_proxy",
	"root":             "narration.root",
	"mode":             "narration.mode",
	"wcag":             "wcag.enabled",
	"axe-script":       "wcag.script",
	"llm":              "llm.provider",
	"llm-model":        "llm.model",
	"screenshot":       "llm.screenshot",
	"metrics-textfile": "metrics.textfile_path",
}

// negatedKeys are boolean config keys set to false by a --no-* flag
var negatedKeys = map[string]string{
	"no-cache":  "cache.enabled",
	"no-robots": "fetch.respect_robots",
	"no-footer": "output.include_footer",
	"no-color":  "output.color",
}

// addCommonFlags registers the flags shared by scan, batch and watch
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("timeout", 0, "HTTP timeout per request")
	f.String("ua", "", "HTTP User-Agent")
	f.Int64("max-bytes", 0, "max response bytes to read")
	f.Bool("insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.String("no-proxy", "", "comma-separated hosts that bypass the proxy")

	f.String("root", "", "CSS selector of the container to narrate (default: body)")
	f.String("mode", "", "narration mode: auto, traversal or direct")

	f.Bool("wcag", false, "run the axe-core rule engine in a headless browser")
	f.String("axe-script", "", "axe-core script path or URL")

	f.String("llm", "", "AI review provider (openai, anthropic, ollama)")
	f.String("llm-model", "", "AI review model name")
	f.Bool("screenshot", false, "attach a page screenshot to the AI review")

	f.String("metrics-textfile", "", "write Prometheus metrics to this file")

	f.Bool("no-cache", false, "disable cache (force fresh fetch)")
	f.Bool("no-robots", false, "ignore robots.txt")
	f.Bool("no-footer", false, "disable footer in Markdown reports")
	f.Bool("no-color", false, "disable colored terminal output")
}

// bindCommonFlags pushes explicitly set flags into viper. Only changed
// flags are applied, so config file and env values survive defaults.
func bindCommonFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			if err := viper.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
			return
		}
		if key, ok := negatedKeys[f.Name]; ok && f.Value.String() == "true" {
			viper.Set(key, false)
		}
	})
	return bindErr
}

// buildConfig resolves the effective configuration for a command
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	if err := bindCommonFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if !cfg.Output.Color {
		color.NoColor = true
	}
	return cfg, nil
}

// newPipeline builds a pipeline from cfg with the command logger
func newPipeline(cfg *model.Config, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	opts = append([]pipeline.Option{pipeline.WithPipelineLogger(logger)}, opts...)
	p, err := pipeline.NewPipeline(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return p, nil
}

// progressPrinter echoes announcements to stderr as they are produced
func progressPrinter() func(record model.AnnouncementRecord, count int) {
	dim := color.New(color.Faint)
	return func(record model.AnnouncementRecord, count int) {
		_, _ = dim.Fprintf(os.Stderr, "  %3d  %s\n", count, record.Announcement)
	}
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
)

// sanitizeFilename turns a report subject into a safe file stem
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(filenameReplacer.Replace(s))
	s = strings.Trim(s, ".-_")
	if s == "" {
		s = "report"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// reportPaths derives output paths for a report in dir
func reportPaths(dir string, index int, report *model.Report) (jsonPath, mdPath string) {
	stem := fmt.Sprintf("%03d-%s", index+1, sanitizeFilename(report.Subject))
	return filepath.Join(dir, stem+".json"), filepath.Join(dir, stem+".md")
}
