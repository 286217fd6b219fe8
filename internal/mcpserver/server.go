// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/richtext"
)

// DocumentFormatURI is the resource URI of the document format contract.
const DocumentFormatURI = "folio://document-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *postservice.Service
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *postservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List published posts, newest first."),
		mcp.WithString("tag", mcp.Description("Only posts carrying this tag")),
		mcp.WithString("site", mcp.Description("Only posts for this site (site-less posts are included)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Number of posts to skip")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the source file (Markdown or editor JSON) of a post."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("render_post",
		mcp.WithDescription("Render a post to its final HTML with internal links, "+
			"returning the HTML, the heading outline and link statistics."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug")),
	), s.renderPost)

	s.mcp.AddTool(mcp.NewTool("preview_internal_links",
		mcp.WithDescription("Render draft content with the configured internal link rules "+
			"without saving it. Content follows the document format contract (see "+
			"get_document_contract or the "+DocumentFormatURI+" resource)."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Draft post body")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
		mcp.WithString("site", mcp.Description("Site whose rules apply (defaults to the configured site)")),
	), s.previewInternalLinks)

	s.mcp.AddTool(mcp.NewTool("list_link_rules",
		mcp.WithDescription("List the internal link rules in effect for a site."),
		mcp.WithString("site", mcp.Description("Site (defaults to the configured site)")),
	), s.listLinkRules)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the Folio document format contract. "+
			"Call this before drafting posts to ensure correct structure."),
	), s.getDocumentContract)

	s.mcp.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Store an image or PDF in the media directory from an http(s) URL "+
			"or a base64 data URI. Returns the public URL and a Markdown image snippet."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("filename", mcp.Description("Target filename (derived from the URL when empty)")),
	), s.uploadMedia)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format Contract",
			mcp.WithResourceDescription("Post file formats, supported nodes and internal linking behaviour."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, total, err := s.svc.ListPosts(ctx, index.ListOptions{
		Tag:    req.GetString("tag", ""),
		Site:   req.GetString("site", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"posts": posts, "total": total}), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.ReadSource(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) renderPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.svc.GetArticle(ctx, slug)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(art), nil
}

func (s *Server) previewInternalLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var root *richtext.Root
	switch format := req.GetString("format", "markdown"); format {
	case "markdown", "":
		res, perr := parser.Parse("draft"+parser.ExtMarkdown, []byte(content))
		if perr != nil {
			return mcp.NewToolResultError(perr.Error()), nil
		}
		root = res.Document
	case "json":
		if root, err = richtext.Decode([]byte(content)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format: %s (use markdown or json)", format)), nil
	}

	out, err := s.svc.RenderDocument(ctx, root, nil, req.GetString("site", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(out), nil
}

func (s *Server) listLinkRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := s.svc.Rules(ctx, req.GetString("site", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(rules), nil
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
