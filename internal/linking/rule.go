// Package linking rewrites rendered HTML to add internal links for keyword
// rules, under per-rule and per-page quotas.
package linking

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MatchType selects how a rule keyword is turned into a pattern.
type MatchType string

// Match types. An empty or unknown value behaves as MatchWord.
const (
	MatchWord   MatchType = "word"
	MatchPhrase MatchType = "phrase"
	MatchRegex  MatchType = "regex"
)

// DefaultMaxLinksPerPage applies when a rule does not set its own quota.
const DefaultMaxLinksPerPage = 2

// ID is a store identifier. Stores emit numeric or string ids; both read as text.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("linking: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Rule maps a keyword to a target URL.
type Rule struct {
	ID              ID        `json:"id,omitempty" yaml:"id,omitempty"`
	Keyword         string    `json:"keyword" yaml:"keyword"`
	TargetURL       string    `json:"target_url" yaml:"target_url"`
	Title           string    `json:"title,omitempty" yaml:"title,omitempty"`
	Nofollow        bool      `json:"nofollow" yaml:"nofollow"`
	Priority        int       `json:"priority" yaml:"priority"`
	MaxLinksPerPage int       `json:"max_links_per_page" yaml:"max_links_per_page"`
	MatchType       MatchType `json:"match_type" yaml:"match_type"`
	Site            string    `json:"site,omitempty" yaml:"site,omitempty"`
	IsActive        bool      `json:"isActive" yaml:"isActive"`
}

// defaultRule holds the values a rule takes when a field is absent.
func defaultRule() Rule {
	return Rule{
		MaxLinksPerPage: DefaultMaxLinksPerPage,
		MatchType:       MatchWord,
		IsActive:        true,
	}
}

// NewRule returns an active word rule with the default quota.
func NewRule(keyword, targetURL string) Rule {
	r := defaultRule()
	r.Keyword = keyword
	r.TargetURL = targetURL
	return r
}

// UnmarshalJSON decodes a rule, filling absent fields with their defaults.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	p := plain(defaultRule())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// UnmarshalYAML decodes a rule, filling absent fields with their defaults.
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	type plain Rule
	p := plain(defaultRule())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// Inert reports whether the rule can never produce a link.
func (r Rule) Inert() bool {
	return r.Keyword == "" || r.TargetURL == "" || r.MaxLinksPerPage <= 0
}

// MatchesSite reports whether the rule applies to site. Rules without a site
// and an empty site argument match everything.
func (r Rule) MatchesSite(site string) bool {
	return site == "" || r.Site == "" || r.Site == site
}
