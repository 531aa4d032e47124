package wcag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/narrascope/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptLoader_HTTPSharedFetch(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("window.axe = {};"))
	}))
	defer server.Close()

	loader := NewScriptLoader(server.URL+"/axe.min.js", nil, time.Hour)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			script, err := loader.Load(context.Background())
			assert.NoError(t, err)
			results[i] = script
		}(i)
	}

	// Let the callers pile up on the in-flight request
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, s := range results {
		assert.Equal(t, "window.axe = {};", s)
	}

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestScriptLoader_UsesCache(t *testing.T) {
	store := cache.NewMemoryCache(time.Hour, time.Minute)
	source := "https://cdn.example.invalid/axe.js"
	require.NoError(t, store.Set(cache.Key(cache.NamespaceScript, source), []byte("cached();"), 0))

	script, err := NewScriptLoader(source, store, time.Hour).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached();", script)
}

func TestScriptLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axe.js")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	store := cache.NewMemoryCache(time.Hour, time.Minute)
	loader := NewScriptLoader(path, store, time.Hour)

	script, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", script)

	_, ok := store.Get(cache.Key(cache.NamespaceScript, path))
	assert.True(t, ok, "script stored in cache")

	// Memoized until reset, then served from cache
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	script, _ = loader.Load(context.Background())
	assert.Equal(t, "v1", script)

	loader.Reset()
	require.NoError(t, store.Clear())
	script, _ = loader.Load(context.Background())
	assert.Equal(t, "v2", script)
}

func TestScriptLoader_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty.js" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tests := []struct {
		name   string
		source string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.js")},
		{"not found", server.URL + "/axe.js"},
		{"empty body", server.URL + "/empty.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptLoader(tt.source, nil, time.Hour).Load(context.Background())
			assert.Error(t, err)
		})
	}
}
