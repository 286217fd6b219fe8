package cms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/parser"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadScheme(t *testing.T) {
	if _, err := New("ftp://cms.local", time.Second); err == nil {
		t.Fatal("expected error for non-http base url")
	}
}

func TestLinkRules_QueryAndDefaults(t *testing.T) {
	var gotPath, gotSite, gotLimit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSite = r.URL.Query().Get("where[site][equals]")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"docs":[
			{"id": 7, "keyword": "tax", "target_url": "/tax", "priority": 50, "site": "example.com"},
			{"id": "abc", "keyword": "books", "target_url": "/books", "isActive": false, "match_type": "phrase"}
		],"totalDocs":2,"hasNextPage":false}`))
	})

	rules, err := c.LinkRules(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("LinkRules: %v", err)
	}
	if gotPath != "/api/internal-links" || gotSite != "example.com" || gotLimit != "100" {
		t.Errorf("request = %s site=%s limit=%s", gotPath, gotSite, gotLimit)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	r0 := rules[0]
	if r0.ID != "7" || r0.MaxLinksPerPage != linking.DefaultMaxLinksPerPage || r0.MatchType != linking.MatchWord || !r0.IsActive {
		t.Errorf("rule 0 defaults not applied: %+v", r0)
	}
	if rules[1].IsActive || rules[1].MatchType != linking.MatchPhrase {
		t.Errorf("rule 1 = %+v", rules[1])
	}
}

func TestLinkRules_UpstreamError(t *testing.T) {
	m := metrics.New("test")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, WithMetrics(m))

	_, err := c.LinkRules(context.Background(), "x")
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if got := testutil.ToFloat64(m.CMSRequestsTotal.WithLabelValues(CollectionInternalLinks, "502")); got != 1 {
		t.Errorf("cms requests metric = %v, want 1", got)
	}
}

func TestBlogs_FollowsPagination(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"docs":[{"slug":"a","title":"A"}],"hasNextPage":true}`))
		default:
			_, _ = w.Write([]byte(`{"docs":[{"slug":"b","title":"B"}],"hasNextPage":false}`))
		}
	})

	blogs, err := c.Blogs(context.Background(), 1)
	if err != nil {
		t.Fatalf("Blogs: %v", err)
	}
	if calls != 2 || len(blogs) != 2 || blogs[1].Slug != "b" {
		t.Errorf("calls=%d blogs=%+v", calls, blogs)
	}
}

func TestBlog_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	})
	if _, err := c.Blog(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBlog_PostFileParses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("where[slug][equals]") != "taxes" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"docs":[{
			"id": 1,
			"title": "Taxes",
			"slug": "taxes",
			"tags": [{"tag": "money"}, {"tag": ""}],
			"categories": [{"category": "finance"}],
			"meta": {"description": "About taxes", "ogImage": {"id": 3, "url": "/media/og.png"}},
			"createdAt": "2024-02-01T12:00:00Z",
			"content": {"root": {"type": "root", "children": [
				{"type": "paragraph", "children": [{"type": "text", "text": "Pay your taxes."}]}
			]}}
		}]}`))
	})

	b, err := c.Blog(context.Background(), "taxes")
	if err != nil {
		t.Fatalf("Blog: %v", err)
	}
	data, err := b.PostFile()
	if err != nil {
		t.Fatalf("PostFile: %v", err)
	}
	res, err := parser.Parse("taxes.json", data)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, data)
	}
	if res.Title != "Taxes" || res.Slug != "taxes" {
		t.Errorf("title/slug = %q/%q", res.Title, res.Slug)
	}
	if len(res.Tags) != 1 || res.Tags[0] != "money" {
		t.Errorf("tags = %v", res.Tags)
	}
	if res.Meta.OGImage != "/media/og.png" || res.Meta.Description != "About taxes" {
		t.Errorf("meta = %+v", res.Meta)
	}
	if res.PublishedAt == nil || res.PublishedAt.Year() != 2024 {
		t.Errorf("published_at = %v, want createdAt fallback", res.PublishedAt)
	}
	if !strings.Contains(res.Text, "Pay your taxes.") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestMedia_AcceptsIDOrObject(t *testing.T) {
	var m BlogMeta
	if err := json.Unmarshal([]byte(`{"ogImage": 12}`), &m); err != nil {
		t.Fatalf("id form: %v", err)
	}
	if m.OGImage.ID != "12" || m.OGImage.URL != "" {
		t.Errorf("media = %+v", m.OGImage)
	}
	if err := json.Unmarshal([]byte(`{"ogImage": null}`), &m); err != nil {
		t.Fatalf("null form: %v", err)
	}
}

func TestRateLimit_WaitHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}, WithRateLimit(0.001, 1))

	// The first call consumes the single token.
	if _, err := c.LinkRules(context.Background(), "x"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.LinkRules(ctx, "x"); err == nil {
		t.Fatal("expected rate limit error with short deadline")
	}
}
