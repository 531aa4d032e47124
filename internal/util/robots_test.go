package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_Check(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)
		_, _ = w.Write([]byte("User-agent: narrascope\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("narrascope/1.0 (+https://example.com)", nil)
	ctx := context.Background()

	d, err := checker.Check(ctx, server.URL+"/docs/page")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2*time.Second, d.CrawlDelay)

	d, err = checker.Check(ctx, server.URL+"/private/area?x=1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	assert.Equal(t, int32(1), fetches.Load(), "robots.txt cached per host")

	checker.Forget()
	_, _ = checker.Check(ctx, server.URL+"/")
	assert.Equal(t, int32(2), fetches.Load())
}

func TestRobotsChecker_FailOpen(t *testing.T) {
	checker := NewRobotsChecker("narrascope", &http.Client{Timeout: 100 * time.Millisecond})

	d, err := checker.Check(context.Background(), "http://127.0.0.1:1/page")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = checker.Check(context.Background(), "file:///tmp/page.html")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = checker.Check(context.Background(), "http://[::1")
	assert.Error(t, err)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "narrascope", ProductToken("narrascope/1.0 (+https://x)"))
	assert.Equal(t, "bot", ProductToken("bot"))
	assert.Equal(t, "", ProductToken(""))
}
