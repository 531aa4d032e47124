package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"go.uber.org/zap"
)

// Scanner produces a report for one URL or file path
type Scanner interface {
	Scan(ctx context.Context, target string) (*model.Report, error)
}

// ScannerFactory returns a scanner for one job. Scanners that cancel their
// previous run on a new call must hand out independent instances here.
type ScannerFactory func() Scanner

// ScanJob scans a single target
type ScanJob struct {
	Index   int
	Target  string
	Scanner Scanner
	Limiter *Limiter
}

// Execute runs the scan, waiting on the host's rate limit first
func (j *ScanJob) Execute(ctx context.Context) Result {
	start := time.Now()
	result := &ScanResult{Index: j.Index, Target: j.Target}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Target); err != nil {
			result.Error = fmt.Errorf("rate limit: %w", err)
			return result
		}
	}

	result.Report, result.Error = j.Scanner.Scan(ctx, j.Target)
	result.Duration = time.Since(start)
	return result
}

// ScanResult is the outcome of one batch entry
type ScanResult struct {
	Index    int
	Target   string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// BatchProcessor scans many targets concurrently
type BatchProcessor struct {
	newScanner  ScannerFactory
	concurrency int
	limiter     *Limiter
	robots      *util.RobotsChecker
	logger      *zap.Logger
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithLimiter rate-limits fetches per host
func WithLimiter(l *Limiter) BatchOption {
	return func(b *BatchProcessor) { b.limiter = l }
}

// WithCrawlDelays slows hosts down to their robots.txt crawl delay
func WithCrawlDelays(r *util.RobotsChecker) BatchOption {
	return func(b *BatchProcessor) { b.robots = r }
}

// WithBatchLogger sets the logger
func WithBatchLogger(logger *zap.Logger) BatchOption {
	return func(b *BatchProcessor) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(newScanner ScannerFactory, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		newScanner:  newScanner,
		concurrency: concurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessTargets scans every target and returns the results in input order.
// A cancelled ctx marks unstarted targets with the context error.
func (b *BatchProcessor) ProcessTargets(ctx context.Context, targets []string) []*ScanResult {
	out := make([]*ScanResult, len(targets))
	if len(targets) == 0 {
		return out
	}

	b.applyCrawlDelays(ctx, targets)

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, target := range targets {
		job := &ScanJob{
			Index:   i,
			Target:  target,
			Scanner: b.newScanner(),
			Limiter: b.limiter,
		}
		if err := pool.Submit(job); err != nil {
			out[i] = &ScanResult{Index: i, Target: target, Error: err}
		}
	}

	for _, r := range pool.Wait() {
		res := r.(*ScanResult)
		out[res.Index] = res
		if res.Error != nil {
			b.logger.Warn("scan failed", zap.String("target", res.Target), zap.Error(res.Error))
		} else {
			b.logger.Debug("scan finished", zap.String("target", res.Target), zap.Duration("duration", res.Duration))
		}
	}

	for i, res := range out {
		if res == nil {
			out[i] = &ScanResult{Index: i, Target: targets[i], Error: context.Cause(ctx)}
		}
	}

	return out
}

// applyCrawlDelays looks up each host's robots.txt once and tightens its
// rate when a crawl delay is declared
func (b *BatchProcessor) applyCrawlDelays(ctx context.Context, targets []string) {
	if b.robots == nil || b.limiter == nil {
		return
	}

	seen := make(map[string]bool)
	for _, target := range targets {
		host := hostOf(target)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true

		decision, err := b.robots.Check(ctx, target)
		if err != nil || decision.CrawlDelay <= 0 {
			continue
		}
		b.limiter.SetHostRate(host, 1/decision.CrawlDelay.Seconds(), 1)
		b.logger.Info("honoring crawl delay",
			zap.String("host", host), zap.Duration("delay", decision.CrawlDelay))
	}
}

// ProcessFile reads targets from a file and scans them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	targets, err := ReadTargetsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return b.ProcessTargets(ctx, targets), nil
}

// ReadTargetsFromFile reads URLs or file paths, one per line. Blank lines
// and # comments are skipped; duplicates are dropped.
func ReadTargetsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var targets []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			targets = append(targets, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return targets, nil
}

// ExpandGlob returns the local files matching pattern, ** included
func ExpandGlob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", pattern, err)
	}
	return matches, nil
}
