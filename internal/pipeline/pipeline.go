// Package pipeline loads pages, narrates them and assembles reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/narrascope/internal/browser"
	"github.com/ppiankov/narrascope/internal/cache"
	"github.com/ppiankov/narrascope/internal/dom"
	"github.com/ppiankov/narrascope/internal/llm"
	"github.com/ppiankov/narrascope/internal/metrics"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/narrate"
	"github.com/ppiankov/narrascope/internal/util"
	"github.com/ppiankov/narrascope/internal/wcag"
	"go.uber.org/zap"
)

// Pipeline orchestrates load, analysis, rule checking and enrichment
type Pipeline struct {
	config   *model.Config
	logger   *zap.Logger
	fetcher  *Fetcher
	analyzer *Analyzer
	checker  *wcag.Checker // nil when the rule engine is disabled
	session  *browser.Session
	enricher *llm.Enricher
	renderer *Renderer
	metrics  *metrics.Recorder
	progress narrate.OnAnnouncement

	narrator *util.Lazy[narrate.Narrator]
	engine   wcag.Engine
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPipelineLogger sets the pipeline logger
func WithPipelineLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNarrator replaces the built-in virtual narrator
func WithNarrator(handle *util.Lazy[narrate.Narrator]) Option {
	return func(p *Pipeline) { p.narrator = handle }
}

// WithEngine replaces the browser-hosted rule engine
func WithEngine(engine wcag.Engine) Option {
	return func(p *Pipeline) { p.engine = engine }
}

// WithRecorder records analysis metrics
func WithRecorder(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress receives announcements as they are produced
func WithProgress(fn narrate.OnAnnouncement) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithEnricher sets the AI enricher
func WithEnricher(e *llm.Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// NewPipeline wires a pipeline from configuration
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		config:   cfg,
		logger:   zap.NewNop(),
		renderer: NewRenderer(cfg.Output.IncludeFooter, cfg.Output.Color),
	}
	for _, opt := range opts {
		opt(p)
	}

	var store cache.Cache = cache.Nop{}
	if cfg.Cache.Enabled {
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	fetchOpts := []FetcherOption{
		WithCache(store, cfg.Cache.DiskTTL),
		WithFetchLogger(p.logger),
	}
	if cfg.Fetch.RespectRobots {
		fetchOpts = append(fetchOpts, WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, nil)))
	}
	p.fetcher = NewFetcher(cfg.HTTP, fetchOpts...)

	if p.narrator == nil {
		p.narrator = util.NewLazy(func(context.Context) (narrate.Narrator, error) {
			return narrate.NewVirtualNarrator(), nil
		})
	}
	p.analyzer = NewAnalyzer(
		narrate.NewTraverser(p.narrator, p.logger),
		WithMode(cfg.Narration.Mode),
		WithLogger(p.logger),
		WithMetrics(p.metrics),
	)

	if p.enricher == nil {
		enricher, err := llm.NewEnricher(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), p.logger)
		if err != nil {
			return nil, err
		}
		p.enricher = enricher
	}

	needBrowser := (cfg.WCAG.Enabled && p.engine == nil) || p.enricher.WantsScreenshot()
	if needBrowser {
		p.session = browser.NewSession(cfg.Browser, p.logger)
	}

	if cfg.WCAG.Enabled {
		if p.engine == nil {
			loader := wcag.NewScriptLoader(cfg.WCAG.Script, store, cfg.WCAG.ScriptTTL)
			p.engine = wcag.NewAxeEngine(p.session, loader)
		}
		p.checker = wcag.NewChecker(p.engine, p.logger)
	}

	return p, nil
}

// Fork returns a pipeline sharing everything except the analyzer's
// cancel-and-replace slot, so concurrent scans do not supersede each other
func (p *Pipeline) Fork() *Pipeline {
	clone := *p
	clone.analyzer = p.analyzer.Fork()
	return &clone
}

// Close releases the browser, if one was started
func (p *Pipeline) Close() error {
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}

// Scan loads target (URL or file path) and produces a complete report.
// A newer Scan on the same pipeline supersedes this one.
func (p *Pipeline) Scan(ctx context.Context, target string) (*model.Report, error) {
	loaded, err := p.fetcher.Load(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", target, err)
	}
	return p.ScanLoaded(ctx, loaded)
}

// ScanLoaded analyzes an already loaded page
func (p *Pipeline) ScanLoaded(ctx context.Context, loaded *FetchResult) (*model.Report, error) {
	doc, err := dom.ParseString(loaded.HTML)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	root, err := doc.Container(p.config.Narration.Root)
	if err != nil {
		return nil, err
	}

	// The run slot also covers the rule engine and AI review
	runCtx, done := p.analyzer.begin(ctx)
	defer done()

	analysis, err := p.analyzer.analyze(ctx, runCtx, doc, root, p.progress)
	if err != nil {
		return nil, err
	}

	subject := doc.Title()
	if subject == "" {
		subject = loaded.Subject
	}

	report := &model.Report{
		RunID:          uuid.NewString(),
		Subject:        subject,
		Target:         loaded.FinalURL,
		FetchedAt:      time.Now().UTC(),
		FetchMeta:      loaded.Meta,
		Duration:       analysis.Duration.Round(time.Millisecond).String(),
		Narrator:       analysis.Narrator,
		FallbackReason: analysis.FallbackReason,
		Announcements:  analysis.Announcements,
		Issues:         analysis.Issues,
		Principles:     model.DefaultPrinciples(),
	}

	if p.checker != nil {
		report.WCAG = p.checkRules(runCtx, loaded)
		if err := p.stale(ctx, runCtx); err != nil {
			return nil, err
		}
	}

	if p.enricher.IsEnabled() {
		p.enrich(runCtx, report, loaded)
		if err := p.stale(ctx, runCtx); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// stale returns ErrSuperseded when a newer scan took over the run slot, or
// the caller's error when ctx itself was cancelled
func (p *Pipeline) stale(ctx, runCtx context.Context) error {
	if isSuperseded(runCtx) {
		p.metrics.ObserveSuperseded()
		return ErrSuperseded
	}
	return ctx.Err()
}

func (p *Pipeline) checkRules(ctx context.Context, loaded *FetchResult) *model.WCAGResult {
	target := wcag.Target{HTML: loaded.HTML}
	if !loaded.IsFile {
		target.URL = loaded.FinalURL
	}

	selector := p.config.Narration.Root
	if strings.EqualFold(selector, "body") {
		selector = ""
	}

	result, err := p.checker.Check(ctx, target, wcag.RunConfig{
		Tags:        p.config.WCAG.Tags,
		ResultTypes: p.config.WCAG.ResultTypes,
		Selector:    selector,
	})
	if err != nil && ctx.Err() != nil {
		// Replaced or cancelled; the caller discards this result
		return &model.WCAGResult{Error: err.Error()}
	}
	if err != nil {
		p.logger.Error("rule engine failed", zap.Error(err))
		p.metrics.ObserveWCAG(nil)
		return &model.WCAGResult{
			Violations: []model.WcagViolation{},
			Incomplete: []model.WcagViolation{},
			Error:      err.Error(),
		}
	}

	p.metrics.ObserveWCAG(result)
	return result
}

func (p *Pipeline) enrich(ctx context.Context, report *model.Report, loaded *FetchResult) {
	var screenshot []byte
	if p.enricher.WantsScreenshot() && p.session != nil {
		src := browser.Source{HTML: loaded.HTML}
		if !loaded.IsFile {
			src = browser.Source{URL: loaded.FinalURL}
		}
		shot, err := p.session.Screenshot(ctx, src)
		if err != nil {
			p.logger.Warn("screenshot failed, reviewing without image", zap.Error(err))
		} else {
			screenshot = shot
		}
	}

	summary, err := p.enricher.Enrich(ctx, *report, screenshot)
	if err != nil {
		p.logger.Warn("AI review failed", zap.Error(err))
		return
	}
	report.AI = summary
}

// RenderReport writes the JSON and Markdown outputs, plus the AI review
// next to the Markdown file when one was produced
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath string) error {
	var errs []error

	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			errs = append(errs, fmt.Errorf("render JSON: %w", err))
		} else {
			p.logger.Info("wrote JSON report", zap.String("path", jsonPath))
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			errs = append(errs, fmt.Errorf("render markdown: %w", err))
		} else {
			p.logger.Info("wrote Markdown report", zap.String("path", mdPath))
		}

		if aiMD := llm.RenderSeparateMarkdown(report.AI); aiMD != "" {
			aiPath := strings.TrimSuffix(mdPath, ".md") + ".ai.md"
			if err := p.renderer.RenderAIMarkdown(aiMD, aiPath); err != nil {
				p.logger.Warn("failed to write AI review", zap.Error(err))
			} else {
				p.logger.Info("wrote AI review", zap.String("path", aiPath))
			}
		}
	}

	return errors.Join(errs...)
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Fetcher returns the pipeline's fetcher
func (p *Pipeline) Fetcher() *Fetcher {
	return p.fetcher
}
