package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/narrascope/internal/model"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	report := reportWithViolations()
	report.Target = "https://shop.example.com/checkout"
	report.Narrator = model.NarratorDirectScan
	report.FallbackReason = model.FallbackEmpty
	report.Announcements = []model.AnnouncementRecord{
		{Index: 0, Announcement: "banner landmark"},
		{Index: 1, Announcement: "image"},
	}

	prompt := BuildPrompt(report, HelpURLs(report), true)

	for _, want := range []string{
		"Subject: Checkout",
		"Target: https://shop.example.com/checkout",
		"Narrator: direct_scan (fallback: empty_traversal)",
		"[error] missing_alt",
		"image-alt (critical, 0 nodes)",
		"1. banner landmark",
		"2. image",
		"- https://dequeuniversity.com/rules/axe/4.10/image-alt",
		"screenshot of the page is attached",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildPrompt_NoURLs(t *testing.T) {
	prompt := BuildPrompt(model.Report{Subject: "x"}, nil, false)
	if !strings.Contains(prompt, "do not cite any") {
		t.Error("Expected prompt to forbid citations when no URLs exist")
	}
	if strings.Contains(prompt, "screenshot") {
		t.Error("Expected no screenshot note without an image")
	}
}

func TestJoinURLs_Many(t *testing.T) {
	urls := make([]string, 25)
	for i := range urls {
		urls[i] = "https://example.com/" + string(rune('a'+i))
	}
	joined := joinURLs(urls)
	if !strings.Contains(joined, "and 5 more URLs") {
		t.Errorf("Expected truncation note, got %s", joined)
	}
}

func TestExtractURLs(t *testing.T) {
	got := extractURLs("See https://a.example/x. Also (https://b.example/y) and https://a.example/x")
	if len(got) != 2 || got[0] != "https://a.example/x" || got[1] != "https://b.example/y" {
		t.Errorf("Unexpected URLs: %v", got)
	}
}

func TestCheckCitations(t *testing.T) {
	allowed := []string{"https://dequeuniversity.com/rules/axe/4.10/label?application=axeAPI"}

	if err := checkCitations([]string{"https://dequeuniversity.com/rules/axe/4.10/label"}, allowed); err != nil {
		t.Errorf("Expected query-less citation to be allowed, got %v", err)
	}
	if err := checkCitations(nil, nil); err != nil {
		t.Errorf("Expected no citations to pass, got %v", err)
	}

	err := checkCitations([]string{"https://www.w3.org/WAI/"}, allowed)
	if !errors.Is(err, ErrCitationLeak) {
		t.Errorf("Expected ErrCitationLeak, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("Expected nil provider for empty config, got %v, %v", p, err)
	}

	p, err = NewProvider(Config{Provider: "Ollama"})
	if err != nil || p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Error("Expected error for openai without key")
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "anthropic", Model: "m", APIKey: "k", StrictURLs: true, Screenshot: true, MaxTokens: 10, Timeout: 7},
		model.HTTPConfig{HTTPSProxy: "http://proxy:3128"},
	)
	if cfg.Provider != "anthropic" || cfg.APIKey != "k" || !cfg.StrictURLs || !cfg.Screenshot || cfg.MaxTokens != 10 || cfg.Timeout != 7 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Expected proxy to carry over, got %q", cfg.HTTPSProxy)
	}
}
