package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/rulestore"
	"github.com/starford/folio/internal/sse"
	tu "github.com/starford/folio/internal/testutil"
)

const taxesPost = `---
title: Taxes
slug: taxes
tags: [money]
---
Pay your taxes with books.
`

const guidePost = `---
title: Guide
---
Read [the taxes post](/blogs/taxes) first.
`

// testEnv sets up a temp content dir, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	router, _ := testEnvWithOptions(t, Options{AuthEnabled: authToken != "", Token: authToken, RevalidateSecret: "hook"})
	return router
}

func testEnvWithOptions(t *testing.T, opts Options) (http.Handler, string) {
	t.Helper()
	dir, store := tu.TestContent(t)
	db := tu.TestDB(t)
	tu.WritePosts(t, store, db, map[string]string{"taxes.md": taxesPost, "guide.md": guidePost})

	rules := rulestore.Static{linking.NewRule("books", "/books")}
	svc := postservice.NewService(store, db, rules, render.New(render.WithLogger(tu.QuietLogger())),
		postservice.WithLogger(tu.QuietLogger()))
	return NewRouter(svc, opts), dir
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListPosts(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/api/posts?tag=money", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PostListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Posts) != 1 || resp.Posts[0].Slug != "taxes" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetPost(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/api/posts/taxes", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var art Article
	_ = json.Unmarshal(w.Body.Bytes(), &art)
	if art.Title != "Taxes" || !strings.Contains(art.HTML, `href="/books"`) {
		t.Errorf("article = %+v", art)
	}
	if len(art.Backlinks) != 1 || art.Backlinks[0] != "guide.md" {
		t.Errorf("backlinks = %v", art.Backlinks)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestGetPost_NotFound(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/posts/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetPostHTML(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/posts/taxes/html", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), `<p class="mb-4 leading-relaxed">Pay your taxes`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/search?q=taxes", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 {
		t.Error("expected search results")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/search", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/backlinks?target=/blogs/taxes", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 {
		t.Errorf("resp = %+v", resp)
	}

	if w := do(t, router, http.MethodGet, "/api/backlinks", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing target = %d, want 400", w.Code)
	}
}

func TestRulesEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/api/rules", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RulesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Rules) != 1 || resp.Rules[0].Keyword != "books" {
		t.Errorf("rules = %+v", resp.Rules)
	}
}

func TestRenderEndpoint(t *testing.T) {
	router := testEnv(t, "")

	body := `{
		"document": {"root": {"type": "root", "children": [
			{"type": "paragraph", "children": [{"type": "text", "text": "Go is fun"}]}
		]}},
		"rules": [{"keyword": "Go", "target_url": "/go"}]
	}`
	w := do(t, router, http.MethodPost, "/api/render", strings.NewReader(body), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out render.Article
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	want := `<p class="mb-4 leading-relaxed"><a href="/go" class="internal-link">Go</a> is fun</p>`
	if out.HTML != want {
		t.Errorf("html = %q\nwant  %q", out.HTML, want)
	}
	if out.Stats.TotalLinksInjected != 1 {
		t.Errorf("stats = %+v", out.Stats)
	}
}

func TestRenderEndpoint_BadRequests(t *testing.T) {
	router := testEnv(t, "")
	for name, body := range map[string]string{
		"malformed":        `{"document": `,
		"missing document": `{"rules": []}`,
	} {
		w := do(t, router, http.MethodPost, "/api/render", strings.NewReader(body), nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestRevalidate(t *testing.T) {
	router := testEnv(t, "")

	body := `{"collection": "blogs", "slug": "taxes"}`
	w := do(t, router, http.MethodPost, "/api/revalidate", strings.NewReader(body), map[string]string{"X-Revalidate-Secret": "hook"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RevalidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Revalidated || resp.Now == 0 || len(resp.Paths) != 2 {
		t.Errorf("resp = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/api/revalidate?secret=hook&path=/about", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manual status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Paths) != 1 || resp.Paths[0] != "/about" {
		t.Errorf("manual paths = %v", resp.Paths)
	}
}

func TestRevalidate_WrongSecret(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/api/revalidate", strings.NewReader(`{}`), map[string]string{"X-Revalidate-Secret": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRevalidate_DisabledWithoutSecret(t *testing.T) {
	router, _ := testEnvWithOptions(t, Options{})
	w := do(t, router, http.MethodGet, "/api/revalidate?secret=", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRevalidate_BypassesBearerAuth(t *testing.T) {
	router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/api/revalidate?secret=hook", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/api/posts", nil, map[string]string{"Authorization": "Bearer secret"})
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/api/posts", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/api/posts", nil, map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_HealthIsPublic(t *testing.T) {
	router := testEnv(t, "secret")
	if w := do(t, router, http.MethodGet, "/health/live", nil, nil); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router, _ := testEnvWithOptions(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if w := do(t, router, http.MethodGet, "/health/ready", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", w.Code)
	}
}

func TestMetricsEndpointAndMiddleware(t *testing.T) {
	m := metrics.New("test")
	router, _ := testEnvWithOptions(t, Options{Metrics: m})

	_ = do(t, router, http.MethodGet, "/api/posts/taxes", nil, nil)
	w := do(t, router, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	want := `folio_http_requests_total{method="GET",route="/api/posts/{slug}",status="200"} 1`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

// SSE tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	w := do(t, router, http.MethodGet, "/api/events", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_StreamsThroughMiddleware(t *testing.T) {
	router := testEnvWithSSE(t, false, "")
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	router, _ := testEnvWithOptions(t, Options{
		AuthEnabled: authEnabled,
		Token:       token,
		Events:      broker,
		Metrics:     metrics.New("test"),
	})
	return router
}

// Media tests.

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	h := map[string]string{"Content-Type": mw.FormDataContentType()}
	for k, v := range hdr {
		h[k] = v
	}
	return do(t, router, http.MethodPost, "/api/media", &buf, h)
}

func TestUploadAndServeMedia(t *testing.T) {
	router, dir := testEnvWithOptions(t, Options{})

	w := uploadFile(t, router, "photo.png", pngBytes, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MediaUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Filename != "photo.png" || resp.URL != "/media/photo.png" {
		t.Errorf("resp = %+v", resp)
	}

	data, err := os.ReadFile(filepath.Join(dir, "media", "photo.png"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if !bytes.Equal(data, pngBytes) {
		t.Error("content mismatch")
	}

	w = do(t, router, http.MethodGet, "/media/photo.png", nil, nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Errorf("serve = %d", w.Code)
	}

	if w := uploadFile(t, router, "photo.png", pngBytes, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate upload = %d, want 409", w.Code)
	}
}

func TestUploadMedia_Rejected(t *testing.T) {
	router, _ := testEnvWithOptions(t, Options{})
	if w := uploadFile(t, router, "fake.png", []byte("not a png"), nil); w.Code != http.StatusBadRequest {
		t.Errorf("mismatched content = %d, want 400", w.Code)
	}
	if w := uploadFile(t, router, "notes.txt", []byte("text"), nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad extension = %d, want 400", w.Code)
	}
}

func TestUploadMedia_AuthProtected(t *testing.T) {
	router := testEnv(t, "secret")
	if w := uploadFile(t, router, "x.png", pngBytes, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
	if w := uploadFile(t, router, "x.png", pngBytes, map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusCreated {
		t.Errorf("upload with auth = %d, want 201", w.Code)
	}
}

func TestUploadMedia_MissingFileField(t *testing.T) {
	router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	w := do(t, router, http.MethodPost, "/api/media", &buf, map[string]string{"Content-Type": mw.FormDataContentType()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestServeMedia_NotFoundAndTraversal(t *testing.T) {
	router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/media/nope.png", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing media = %d, want 404", w.Code)
	}
	for _, name := range []string{"..%2Fsecret.md", "..%2F..%2Fetc%2Fpasswd"} {
		w := do(t, router, http.MethodGet, "/media/"+name, nil, nil)
		// chi may not route the traversal paths at all (404), or the handler rejects (400).
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}
