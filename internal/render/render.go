// Package render turns documents into final article HTML: serialization,
// internal link injection and optional sanitization.
package render

import (
	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/richtext"
)

// RenderWithLinks serializes root and injects links from the rules that are
// active and apply to site, using the default injection options.
func RenderWithLinks(root *richtext.Root, rules []linking.Rule, site string) string {
	html := richtext.Serialize(root)
	if html == "" {
		return html
	}
	out, _ := linking.Inject(html, FilterRules(rules, site), linking.DefaultOptions())
	return out
}

// FilterRules returns the active rules that apply to site, in input order.
func FilterRules(rules []linking.Rule, site string) []linking.Rule {
	out := make([]linking.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive && r.MatchesSite(site) {
			out = append(out, r)
		}
	}
	return out
}
