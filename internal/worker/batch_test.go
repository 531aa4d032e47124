package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"go.uber.org/goleak"
)

// ignoreCacheJanitor skips go-cache cleanup goroutines, which only stop
// once their cache is garbage collected
var ignoreCacheJanitor = goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run")

// mockScanner fails targets containing "fail"
type mockScanner struct{}

func (m *mockScanner) Scan(ctx context.Context, target string) (*model.Report, error) {
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if strings.Contains(target, "fail") {
		return nil, errors.New("scan error")
	}
	return &model.Report{Subject: "Test Subject", Target: target}, nil
}

func newMockFactory() (ScannerFactory, func() int) {
	var mu sync.Mutex
	var instances int
	factory := func() Scanner {
		mu.Lock()
		instances++
		mu.Unlock()
		return &mockScanner{}
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return instances
	}
	return factory, count
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessTargets(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor)

	factory, instances := newMockFactory()
	processor := NewBatchProcessor(factory, 3, WithLimiter(NewLimiter(0, 1)))

	targets := []string{"http://a.example/1", "http://b.example/fail", "page.html", "http://a.example/2"}
	results := processor.ProcessTargets(context.Background(), targets)

	if len(results) != len(targets) {
		t.Fatalf("expected %d results, got %d", len(targets), len(results))
	}
	for i, res := range results {
		if res.Target != targets[i] || res.Index != i {
			t.Errorf("result %d out of order: %+v", i, res)
		}
	}
	if results[1].Error == nil || results[1].Report != nil {
		t.Errorf("expected failure for %s", targets[1])
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Error != nil || results[i].Report == nil {
			t.Errorf("unexpected failure for %s: %v", targets[i], results[i].Error)
		}
	}
	if got := instances(); got != len(targets) {
		t.Errorf("expected one scanner per job, got %d", got)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	factory, _ := newMockFactory()
	results := NewBatchProcessor(factory, 2).ProcessTargets(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory, _ := newMockFactory()
	results := NewBatchProcessor(factory, 2).ProcessTargets(ctx, []string{"a.html", "b.html", "c.html"})

	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", res.Target, res.Error)
		}
	}
}

func TestBatchProcessor_CrawlDelays(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 4\n"))
	}))
	defer server.Close()

	limiter := NewLimiter(100, 10)
	factory, _ := newMockFactory()
	processor := NewBatchProcessor(factory, 1,
		WithLimiter(limiter),
		WithCrawlDelays(util.NewRobotsChecker("narrascope", nil)))

	processor.applyCrawlDelays(context.Background(), []string{server.URL + "/a", server.URL + "/b", "local.html"})

	host := strings.TrimPrefix(server.URL, "http://")
	l, ok := limiter.limiters[host]
	if !ok {
		t.Fatalf("expected a limiter for %s", host)
	}
	if got := float64(l.Limit()); got != 0.25 {
		t.Errorf("expected 0.25 rps, got %v", got)
	}
	if l.Burst() != 1 {
		t.Errorf("expected burst 1, got %d", l.Burst())
	}
}

func TestReadTargetsFromFile(t *testing.T) {
	path := writeFile(t, "targets.txt", "http://example.com\n# comment\n./pages/a.html\n   \nhttp://example.com\nhttp://bing.com   \n")

	targets, err := ReadTargetsFromFile(path)
	if err != nil {
		t.Fatalf("ReadTargetsFromFile failed: %v", err)
	}

	expected := []string{"http://example.com", "./pages/a.html", "http://bing.com"}
	if strings.Join(targets, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, targets)
	}

	if _, err := ReadTargetsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	factory, _ := newMockFactory()
	processor := NewBatchProcessor(factory, 2)

	results, err := processor.ProcessFile(context.Background(), writeFile(t, "urls.txt", "a.html\nb.html\n"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestExpandGlob(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.html", "nested/b.html", "nested/deeper/c.html", "nested/notes.txt"} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("<p>x</p>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := ExpandGlob(filepath.Join(root, "**", "*.html"))
	if err != nil {
		t.Fatalf("ExpandGlob failed: %v", err)
	}
	sort.Strings(matches)

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %v", matches)
	}
	if !strings.HasSuffix(matches[0], "a.html") {
		t.Errorf("unexpected first match %s", matches[0])
	}

	if _, err := ExpandGlob("[unclosed"); err == nil {
		t.Error("expected error for bad pattern")
	}
}

func TestScanResult_GetError(t *testing.T) {
	if (&ScanResult{}).GetError() != nil {
		t.Error("expected nil error")
	}
	expected := errors.New("scan failed")
	if (&ScanResult{Error: expected}).GetError() != expected {
		t.Error("expected the stored error")
	}
}
