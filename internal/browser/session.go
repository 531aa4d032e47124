// Package browser hosts pages in a headless Chrome for the rule engine and
// for screenshots.
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"go.uber.org/zap"
)

// Source is what a page should display
type Source struct {
	URL  string // Navigate here when set
	HTML string // Otherwise load this markup into about:blank
}

// Session owns one process-wide browser connection, created on first use
type Session struct {
	cfg    model.BrowserConfig
	handle *util.Lazy[*rod.Browser]
	logger *zap.Logger
}

// NewSession creates a session; no browser is started until a page is opened
func NewSession(cfg model.BrowserConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, logger: logger}
	s.handle = util.NewLazy(s.connect)
	return s
}

func (s *Session) connect(ctx context.Context) (*rod.Browser, error) {
	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	s.logger.Debug("browser connected", zap.String("control_url", controlURL))
	return b, nil
}

// Open creates a page showing src. The caller must Close the page.
func (s *Session) Open(ctx context.Context, src Source) (*rod.Page, error) {
	b, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx)

	if src.URL != "" {
		if err := page.Navigate(src.URL); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("navigate %s: %w", src.URL, err)
		}
		if err := page.WaitLoad(); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("wait load: %w", err)
		}
		return page, nil
	}

	if err := page.SetDocumentContent(src.HTML); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set document content: %w", err)
	}
	return page, nil
}

// Screenshot captures a full-page PNG of src
func (s *Session) Screenshot(ctx context.Context, src Source) ([]byte, error) {
	page, err := s.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	img, err := page.Screenshot(true, nil)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return img, nil
}

// Close shuts the browser down if it was started. The session can be reused
// afterwards; the next Open starts a new browser.
func (s *Session) Close() error {
	if !s.handle.Loaded() {
		return nil
	}
	b, err := s.handle.Get(context.Background())
	s.handle.Reset()
	if err != nil {
		return nil
	}
	return b.Close()
}
