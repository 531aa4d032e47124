package wcag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ppiankov/narrascope/internal/browser"
)

// axeRun resolves to {violations, incomplete, passes} for the given region
const axeRun = `(selector, tags, resultTypes) => {
	if (typeof axe === 'undefined') {
		throw new Error('axe-core is not loaded');
	}
	const root = (selector && document.querySelector(selector)) || document;
	const options = { resultTypes: resultTypes };
	if (tags && tags.length) {
		options.runOnly = { type: 'tag', values: tags };
	}
	return axe.run(root, options).then(r => ({
		violations: r.violations,
		incomplete: r.incomplete,
		passes: r.passes.length
	}));
}`

// AxeEngine runs axe-core inside a headless browser page
type AxeEngine struct {
	session *browser.Session
	loader  *ScriptLoader
}

// NewAxeEngine creates an engine using the shared browser session
func NewAxeEngine(session *browser.Session, loader *ScriptLoader) *AxeEngine {
	return &AxeEngine{session: session, loader: loader}
}

// Run loads target, injects axe-core and returns its raw results
func (e *AxeEngine) Run(ctx context.Context, target Target, cfg RunConfig) (json.RawMessage, error) {
	script, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	page, err := e.session.Open(ctx, browser.Source{URL: target.URL, HTML: target.HTML})
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	if err := page.AddScriptTag("", script); err != nil {
		return nil, fmt.Errorf("inject axe-core: %w", err)
	}

	tags := cfg.Tags
	if tags == nil {
		tags = []string{}
	}
	resultTypes := cfg.ResultTypes
	if resultTypes == nil {
		resultTypes = []string{}
	}

	res, err := page.Evaluate(&rod.EvalOptions{
		JS:           axeRun,
		JSArgs:       []interface{}{cfg.Selector, tags, resultTypes},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("axe.run: %w", err)
	}

	return json.RawMessage(res.Value.JSON("", "")), nil
}
