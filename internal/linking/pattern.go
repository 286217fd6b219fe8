package linking

import "regexp"

// Pattern builds the case-insensitive expression for a rule keyword.
// Regex rules use RE2 syntax; lookaround and backreferences do not compile.
func Pattern(r Rule) string {
	switch r.MatchType {
	case MatchRegex:
		return "(?i)" + r.Keyword
	case MatchPhrase:
		return "(?i)" + regexp.QuoteMeta(r.Keyword)
	default:
		return `(?i)\b` + regexp.QuoteMeta(r.Keyword) + `\b`
	}
}

// Compile returns the matcher for r.
func Compile(r Rule) (*regexp.Regexp, error) {
	return regexp.Compile(Pattern(r))
}
