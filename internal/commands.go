package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/richtext"
	"github.com/starford/folio/internal/rulestore"
)

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	content, err := app.openContent(logger)
	if err != nil {
		return err
	}
	defer content.db.Close()

	rules, err := app.ruleStore(nil, logger)
	if err != nil {
		return err
	}

	svc := postservice.NewService(content.store, content.db, rules, app.renderer(nil, logger),
		postservice.WithSite(app.config.Links.Site),
		postservice.WithLogger(logger))

	logger.Info("MCP server starting", slog.String("content_path", app.config.Content.Path))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// PullOptions configures RunPull.
type PullOptions struct {
	// Dir is the content subdirectory posts are written to.
	Dir string
	Out io.Writer
}

// RunPull copies every CMS post into the content directory as JSON post
// files and prints the outcome as JSON.
func RunPull(ctx context.Context, po PullOptions, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	client, err := app.cmsClient(nil, logger)
	if err != nil {
		return err
	}
	content, err := app.openContent(logger)
	if err != nil {
		return err
	}
	defer content.db.Close()

	stats, err := postservice.Pull(ctx, client, content.store, po.Dir, logger)
	if err != nil {
		return err
	}
	out := po.Out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// RenderOptions configures RunRender.
type RenderOptions struct {
	// Document is a post file (.md or .json), a bare editor state (.json)
	// or "-" for stdin.
	Document string
	// Rules is a YAML rule file. Empty uses the configured rule source.
	Rules string
	// Site overrides the post's site when selecting rules.
	Site string
	// Stats writes link statistics as JSON to Err.
	Stats bool
	Out   io.Writer
	Err   io.Writer
}

// RunRender renders one document to HTML without touching the index.
func RunRender(ctx context.Context, ro RenderOptions, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(stderrIfUnset(ro.Err))}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	data, err := readDocument(ro.Document)
	if err != nil {
		return err
	}
	root, postSite, err := decodeDocument(ro.Document, data)
	if err != nil {
		return err
	}

	site := ro.Site
	if site == "" {
		site = postSite
	}
	if site == "" {
		site = app.config.Links.Site
	}

	var rules []linking.Rule
	if ro.Rules != "" {
		raw, err := os.ReadFile(ro.Rules)
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		if rules, err = rulestore.ParseYAML(raw); err != nil {
			return fmt.Errorf("rules %s: %w", ro.Rules, err)
		}
	} else {
		store, err := app.ruleStore(nil, logger)
		if err != nil {
			return err
		}
		if rules, err = store.Rules(ctx, site); err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
	}

	art, err := app.renderer(nil, logger).Render(ctx, root, rules, site)
	if err != nil {
		return err
	}

	out := ro.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := io.WriteString(out, art.HTML+"\n"); err != nil {
		return err
	}
	if ro.Stats {
		enc := json.NewEncoder(stderrIfUnset(ro.Err))
		enc.SetIndent("", "  ")
		return enc.Encode(art.Stats)
	}
	return nil
}

func readDocument(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// decodeDocument accepts post files in either format and bare editor JSON.
// It returns the document and the site named by the post, if any.
func decodeDocument(name string, data []byte) (*richtext.Root, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" || name == "-" {
		ext = parser.ExtMarkdown
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			ext = parser.ExtJSON
		}
	}

	if ext == parser.ExtJSON {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, "", fmt.Errorf("decode document: %w", err)
		}
		if _, isPost := probe["content"]; !isPost {
			root, err := richtext.Decode(data)
			if err != nil {
				return nil, "", fmt.Errorf("decode document: %w", err)
			}
			return root, "", nil
		}
	}

	res, err := parser.Parse("document"+ext, data)
	if err != nil {
		return nil, "", err
	}
	return res.Document, res.Site, nil
}
