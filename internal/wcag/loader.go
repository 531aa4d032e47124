package wcag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/narrascope/internal/cache"
	"golang.org/x/sync/singleflight"
)

// ScriptLoader loads the rule engine's script once per process. Concurrent
// first calls share one fetch; later calls return the memoized copy.
type ScriptLoader struct {
	source     string
	store      cache.Cache
	ttl        time.Duration
	httpClient *http.Client

	group  singleflight.Group
	mu     sync.RWMutex
	script string
}

// NewScriptLoader creates a loader for a local path or http(s) URL
func NewScriptLoader(source string, store cache.Cache, ttl time.Duration) *ScriptLoader {
	if store == nil {
		store = cache.Nop{}
	}
	return &ScriptLoader{
		source:     source,
		store:      store,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load returns the script text
func (l *ScriptLoader) Load(ctx context.Context) (string, error) {
	l.mu.RLock()
	script := l.script
	l.mu.RUnlock()
	if script != "" {
		return script, nil
	}

	v, err, _ := l.group.Do(l.source, func() (any, error) {
		key := cache.Key(cache.NamespaceScript, l.source)
		if data, ok := l.store.Get(key); ok && len(data) > 0 {
			return string(data), nil
		}

		data, err := l.fetch(ctx)
		if err != nil {
			return "", err
		}
		_ = l.store.Set(key, data, l.ttl)
		return string(data), nil
	})
	if err != nil {
		return "", err
	}

	script = v.(string)
	l.mu.Lock()
	l.script = script
	l.mu.Unlock()
	return script, nil
}

// Reset forgets the memoized script
func (l *ScriptLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.script = ""
}

func (l *ScriptLoader) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(l.source, "http://") && !strings.HasPrefix(l.source, "https://") {
		data, err := os.ReadFile(l.source)
		if err != nil {
			return nil, fmt.Errorf("read engine script: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch engine script: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch engine script: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read engine script: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("engine script is empty")
	}
	return data, nil
}
