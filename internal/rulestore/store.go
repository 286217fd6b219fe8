// Package rulestore loads internal link rules from a YAML file or the CMS and
// caches them per site.
package rulestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/cms"
	"github.com/starford/folio/internal/linking"
)

// Source names, also used as metric labels.
const (
	SourceFile = "file"
	SourceCMS  = "cms"
)

// Store returns the link rules that apply to a site.
type Store interface {
	Rules(ctx context.Context, site string) ([]linking.Rule, error)
}

// FileStore reads rules from a YAML file on every call.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ruleFile is the YAML layout: a top-level "rules" list.
type ruleFile struct {
	Rules []linking.Rule `yaml:"rules"`
}

// Rules implements Store. A missing file yields no rules. Rules for other
// sites are dropped; site-agnostic rules are kept.
func (s *FileStore) Rules(_ context.Context, site string) ([]linking.Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []linking.Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rulestore: read %s: %w", s.path, err)
	}
	rules, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("rulestore: %s: %w", s.path, err)
	}
	out := make([]linking.Rule, 0, len(rules))
	for _, r := range rules {
		if r.MatchesSite(site) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ParseYAML decodes a rule file. Both a bare list and a {rules: [...]}
// document are accepted.
func ParseYAML(data []byte) ([]linking.Rule, error) {
	var list []linking.Rule
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return f.Rules, nil
}

// CMSStore fetches rules from the CMS internal-links collection.
type CMSStore struct {
	client *cms.Client
}

// NewCMSStore returns a store backed by client.
func NewCMSStore(client *cms.Client) *CMSStore {
	return &CMSStore{client: client}
}

// Rules implements Store.
func (s *CMSStore) Rules(ctx context.Context, site string) ([]linking.Rule, error) {
	return s.client.LinkRules(ctx, site)
}

// Static is a fixed rule set, used by the CLI and tests.
type Static []linking.Rule

// Rules implements Store.
func (s Static) Rules(_ context.Context, site string) ([]linking.Rule, error) {
	out := make([]linking.Rule, 0, len(s))
	for _, r := range s {
		if r.MatchesSite(site) {
			out = append(out, r)
		}
	}
	return out, nil
}
