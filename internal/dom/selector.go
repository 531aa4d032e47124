package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Compile compiles a CSS selector
func Compile(selector string) (cascadia.Matcher, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return sel, nil
}

// MustCompile compiles a CSS selector and panics on error.
// Only used for the fixed selector tables.
func MustCompile(selector string) cascadia.Matcher {
	return cascadia.MustCompile(selector)
}

// QueryAll returns every element under root matching m, in document order.
// Unlike cascadia.QueryAll, root itself is a candidate.
func QueryAll(root *html.Node, m cascadia.Matcher) []*html.Node {
	var results []*html.Node
	if root.Type == html.ElementNode && m.Match(root) {
		results = append(results, root)
	}
	return append(results, cascadia.QueryAll(root, m)...)
}

// QueryFirst returns the first element under root (root included) matching m
func QueryFirst(root *html.Node, m cascadia.Matcher) *html.Node {
	if root.Type == html.ElementNode && m.Match(root) {
		return root
	}
	return cascadia.Query(root, m)
}

// Closest returns the nearest ancestor of n (n excluded) matching m
func Closest(n *html.Node, m cascadia.Matcher) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && m.Match(p) {
			return p
		}
	}
	return nil
}
