package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/starford/folio/internal/richtext"
)

// calloutInfo is the fence info prefix that turns a code block into a
// callout component, e.g. "```callout warning".
const calloutInfo = "callout"

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(gparser.WithAttribute()),
)

// Markdown converts a CommonMark (GFM) body into a document tree. Raw HTML
// is dropped.
func Markdown(src []byte) *richtext.Root {
	doc := md.Parser().Parse(text.NewReader(src))
	c := &converter{src: src}
	return &richtext.Root{Children: c.blocks(doc)}
}

type converter struct {
	src []byte
}

func (c *converter) blocks(n ast.Node) []richtext.Node {
	var out []richtext.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if b := c.block(child); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) block(n ast.Node) richtext.Node {
	switch v := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		inl := c.inlines(v, 0)
		if len(inl) == 1 {
			if up, ok := inl[0].(*richtext.Upload); ok {
				return up
			}
		}
		return &richtext.Paragraph{Children: inl}
	case *ast.Heading:
		h := &richtext.Heading{Level: v.Level, Children: c.inlines(v, 0)}
		if id, ok := v.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				h.ID = string(b)
			}
		}
		return h
	case *ast.List:
		l := &richtext.List{Ordered: v.IsOrdered()}
		for item := v.FirstChild(); item != nil; item = item.NextSibling() {
			l.Children = append(l.Children, c.listItem(item))
		}
		return l
	case *ast.Blockquote:
		return &richtext.Quote{Children: c.blocks(v)}
	case *ast.FencedCodeBlock:
		var info string
		if v.Info != nil {
			info = strings.TrimSpace(string(v.Info.Segment.Value(c.src)))
		}
		body := c.lines(v)
		if kind, ok := strings.CutPrefix(info, calloutInfo); ok && (kind == "" || kind[0] == ' ') {
			return &richtext.Block{
				BlockType: richtext.BlockCallout,
				Fields: map[string]any{
					"blockType": richtext.BlockCallout,
					"type":      strings.TrimSpace(kind),
					"content":   strings.TrimRight(body, "\n"),
				},
			}
		}
		return &richtext.Code{
			Language: string(v.Language(c.src)),
			Children: []richtext.Node{&richtext.Text{Text: strings.TrimRight(body, "\n")}},
		}
	case *ast.CodeBlock:
		return &richtext.Code{
			Children: []richtext.Node{&richtext.Text{Text: strings.TrimRight(c.lines(v), "\n")}},
		}
	case *ast.ThematicBreak:
		return &richtext.HorizontalRule{}
	case *east.Table:
		t := &richtext.Table{}
		for row := v.FirstChild(); row != nil; row = row.NextSibling() {
			r := &richtext.TableRow{}
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				r.Children = append(r.Children, &richtext.TableCell{Children: c.inlines(cell, 0)})
			}
			t.Children = append(t.Children, r)
		}
		return t
	case *ast.HTMLBlock:
		return nil
	}
	return &richtext.Unknown{Type: n.Kind().String(), Children: c.blocks(n)}
}

// listItem flattens tight-list text blocks into the item itself.
func (c *converter) listItem(n ast.Node) richtext.Node {
	li := &richtext.ListItem{}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if tb, ok := child.(*ast.TextBlock); ok {
			li.Children = append(li.Children, c.inlines(tb, 0)...)
			continue
		}
		if b := c.block(child); b != nil {
			li.Children = append(li.Children, b)
		}
	}
	return li
}

func (c *converter) inlines(n ast.Node, f richtext.Format) []richtext.Node {
	var out []richtext.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch v := child.(type) {
		case *ast.Text:
			s := string(v.Segment.Value(c.src))
			if v.SoftLineBreak() {
				s += " "
			}
			out = appendText(out, s, f)
			if v.HardLineBreak() {
				out = append(out, &richtext.LineBreak{})
			}
		case *ast.String:
			out = appendText(out, string(v.Value), f)
		case *ast.Emphasis:
			mark := richtext.FormatItalic
			if v.Level >= 2 {
				mark = richtext.FormatBold
			}
			out = append(out, c.inlines(v, f|mark)...)
		case *east.Strikethrough:
			out = append(out, c.inlines(v, f|richtext.FormatStrikethrough)...)
		case *ast.CodeSpan:
			out = appendText(out, c.plain(v), f|richtext.FormatCode)
		case *ast.Link:
			out = append(out, &richtext.Link{URL: string(v.Destination), Children: c.inlines(v, f)})
		case *ast.AutoLink:
			url := string(v.URL(c.src))
			if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
				url = "mailto:" + url
			}
			out = append(out, &richtext.Link{
				URL:      url,
				Children: []richtext.Node{&richtext.Text{Text: string(v.Label(c.src)), Format: f}},
			})
		case *ast.Image:
			out = append(out, &richtext.Upload{URL: string(v.Destination), AltText: c.plain(v)})
		case *east.TaskCheckBox:
			box := "[ ] "
			if v.IsChecked {
				box = "[x] "
			}
			out = appendText(out, box, f)
		case *ast.RawHTML:
		default:
			out = append(out, c.inlines(v, f)...)
		}
	}
	return out
}

// appendText merges s into the previous text run when the marks match.
func appendText(out []richtext.Node, s string, f richtext.Format) []richtext.Node {
	if s == "" {
		return out
	}
	if n := len(out); n > 0 {
		if prev, ok := out[n-1].(*richtext.Text); ok && prev.Format == f && prev.Color == "" {
			prev.Text += s
			return out
		}
	}
	return append(out, &richtext.Text{Text: s, Format: f})
}

func (c *converter) plain(n ast.Node) string {
	var b bytes.Buffer
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(c.src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func (c *converter) lines(n ast.Node) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}
