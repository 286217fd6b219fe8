package linking

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/folio/internal/escape"
)

// DefaultMaxTotalLinks caps the links added to one page.
const DefaultMaxTotalLinks = 50

// LinkClass marks anchors added by the injector.
const LinkClass = "internal-link"

// DefaultAvoidTags lists the elements whose content is never linked.
func DefaultAvoidTags() []string {
	return []string{"a", "code", "pre", "script", "style"}
}

// Options tune a single Inject call.
type Options struct {
	// MaxTotalLinks caps links across all rules. Zero or less means
	// DefaultMaxTotalLinks.
	MaxTotalLinks int
	// AvoidTags overrides DefaultAvoidTags when non-nil. An empty, non-nil
	// slice disables the check; existing anchors are always avoided.
	AvoidTags []string
	// Logger receives warnings for rules that fail to compile.
	Logger *slog.Logger
	// OnInvalidRule, if set, is called for every rule skipped because its
	// pattern does not compile.
	OnInvalidRule func(Rule, error)
}

// DefaultOptions returns the options used by page rendering.
func DefaultOptions() Options {
	return Options{MaxTotalLinks: DefaultMaxTotalLinks, AvoidTags: DefaultAvoidTags()}
}

// Diagnostic records a rule skipped during injection.
type Diagnostic struct {
	Keyword string `json:"keyword"`
	Pattern string `json:"pattern"`
	Error   string `json:"error"`
}

// Stats summarises one Inject call.
type Stats struct {
	TotalLinksInjected int            `json:"totalLinksInjected"`
	RuleStats          map[string]int `json:"ruleStats"`
	Diagnostics        []Diagnostic   `json:"diagnostics,omitempty"`
}

// Inject wraps keyword occurrences in doc with links according to rules.
//
// Rules run by priority, highest first, then by keyword length, longest first;
// equal rules keep their input order. Each rule scans the document as left by
// the previous rule. Occurrences inside markup, character references, avoided
// elements or existing anchors are left alone. Inject never fails: inert,
// inactive and uncompilable rules are skipped.
func Inject(doc string, rules []Rule, opts Options) (string, Stats) {
	maxTotal := opts.MaxTotalLinks
	if maxTotal <= 0 {
		maxTotal = DefaultMaxTotalLinks
	}
	avoidTags := opts.AvoidTags
	if avoidTags == nil {
		avoidTags = DefaultAvoidTags()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	avoid := make([]tagMatcher, 0, len(avoidTags))
	for _, tag := range avoidTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			avoid = append(avoid, avoidMatcher(tag))
		}
	}

	stats := Stats{RuleStats: make(map[string]int)}

	for _, r := range sortRules(rules) {
		if stats.TotalLinksInjected >= maxTotal {
			break
		}
		if _, seen := stats.RuleStats[r.Keyword]; !seen {
			stats.RuleStats[r.Keyword] = 0
		}

		re, err := Compile(r)
		if err != nil {
			logger.Warn("linking: invalid rule pattern",
				slog.String("keyword", r.Keyword),
				slog.String("pattern", Pattern(r)),
				slog.String("error", err.Error()))
			stats.Diagnostics = append(stats.Diagnostics, Diagnostic{
				Keyword: r.Keyword,
				Pattern: Pattern(r),
				Error:   err.Error(),
			})
			if opts.OnInvalidRule != nil {
				opts.OnInvalidRule(r, err)
			}
			continue
		}

		var n int
		doc, n = applyRule(doc, r, re, avoid, maxTotal-stats.TotalLinksInjected)
		stats.RuleStats[r.Keyword] += n
		stats.TotalLinksInjected += n
	}

	return doc, stats
}

// sortRules drops unusable rules and orders the rest for application.
func sortRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive && !r.Inert() {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Rule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(utf8.RuneCountInString(b.Keyword), utf8.RuneCountInString(a.Keyword))
	})
	return out
}

// applyRule links up to min(r.MaxLinksPerPage, budget) matches of re. All
// position checks use doc as it was before this rule.
func applyRule(doc string, r Rule, re *regexp.Regexp, avoid []tagMatcher, budget int) (string, int) {
	limit := min(r.MaxLinksPerPage, budget)
	matches := re.FindAllStringIndex(doc, -1)
	if len(matches) == 0 || limit <= 0 {
		return doc, 0
	}

	idx := analyze(doc, avoid)
	open := anchorOpen(r)

	var b strings.Builder
	last, count := 0, 0
	for _, m := range matches {
		if count >= limit {
			break
		}
		start, end := m[0], m[1]
		if start == end || !idx.linkable(start, end) {
			continue
		}
		if b.Len() == 0 {
			b.Grow(len(doc) + limit*(len(open)+8))
		}
		b.WriteString(doc[last:start])
		b.WriteString(open)
		b.WriteString(doc[start:end])
		b.WriteString("</a>")
		last = end
		count++
	}
	if count == 0 {
		return doc, 0
	}
	b.WriteString(doc[last:])
	return b.String(), count
}

func anchorOpen(r Rule) string {
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(escape.Attr(r.TargetURL))
	b.WriteByte('"')
	if r.Title != "" {
		b.WriteString(` title="`)
		b.WriteString(escape.Attr(r.Title))
		b.WriteByte('"')
	}
	if r.Nofollow {
		b.WriteString(` rel="nofollow"`)
	}
	b.WriteString(` class="` + LinkClass + `">`)
	return b.String()
}
