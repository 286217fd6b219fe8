package richtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// wireNode is the editor's JSON shape for every node kind.
type wireNode struct {
	Type     string          `json:"type"`
	Children []wireNode      `json:"children"`
	Text     string          `json:"text"`
	Format   json.RawMessage `json:"format"`
	Style    string          `json:"style"`
	Tag      string          `json:"tag"`
	ID       string          `json:"id"`
	ListType string          `json:"listType"`
	URL      string          `json:"url"`
	NewTab   bool            `json:"newTab"`
	Target   string          `json:"target"`
	Language string          `json:"language"`
	Fields   map[string]any  `json:"fields"`
	Value    json.RawMessage `json:"value"`
}

// Decode parses an editor document. It accepts both the wrapped form
// {"root": {...}} and a bare root node. Unknown node types decode to *Unknown;
// only malformed JSON is an error.
func Decode(data []byte) (*Root, error) {
	root := &Root{}
	if err := root.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return root, nil
}

// UnmarshalJSON implements json.Unmarshaler so a *Root can be embedded in
// request bodies and post files.
func (r *Root) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		r.Children = nil
		return nil
	}
	var doc struct {
		Root *wireNode `json:"root"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("richtext: decode document: %w", err)
	}
	w := doc.Root
	if w == nil {
		w = &wireNode{}
		if err := json.Unmarshal(data, w); err != nil {
			return fmt.Errorf("richtext: decode root: %w", err)
		}
	}
	r.Children = convertAll(w.Children)
	return nil
}

func convertAll(ws []wireNode) []Node {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Node, 0, len(ws))
	for i := range ws {
		out = append(out, convert(&ws[i]))
	}
	return out
}

func convert(w *wireNode) Node {
	switch w.Type {
	case "root":
		return &Unknown{Type: w.Type, Children: convertAll(w.Children)}
	case "paragraph":
		return &Paragraph{Children: convertAll(w.Children)}
	case "text", "tab":
		return &Text{Text: w.Text, Format: textFormat(w.Format), Color: styleColor(w.Style)}
	case "heading":
		return &Heading{Level: headingLevel(w.Tag), ID: w.ID, Children: convertAll(w.Children)}
	case "link", "autolink":
		url := fieldString(w.Fields, "url")
		if url == "" {
			url = w.URL
		}
		newTab := w.NewTab || w.Target == "_blank" ||
			fieldBool(w.Fields, "newTab") || fieldBool(w.Fields, "openInNewTab")
		return &Link{URL: url, OpenInNewTab: newTab, Children: convertAll(w.Children)}
	case "list":
		return &List{Ordered: w.ListType == "number" || w.Tag == "ol", Children: convertAll(w.Children)}
	case "listitem":
		return &ListItem{Children: convertAll(w.Children)}
	case "quote":
		return &Quote{Children: convertAll(w.Children)}
	case "code":
		return &Code{Language: w.Language, Children: convertAll(w.Children)}
	case "code-highlight":
		return &Text{Text: w.Text}
	case "linebreak":
		return &LineBreak{}
	case "horizontalrule":
		return &HorizontalRule{}
	case "upload":
		return uploadFromValue(w.Value)
	case "table":
		return &Table{Children: convertAll(w.Children)}
	case "tablerow":
		return &TableRow{Children: convertAll(w.Children)}
	case "tablecell":
		return &TableCell{Children: convertAll(w.Children)}
	case "block":
		return &Block{BlockType: fieldString(w.Fields, "blockType"), Fields: w.Fields}
	}
	return &Unknown{Type: w.Type, Children: convertAll(w.Children)}
}

// textFormat reads the numeric mark bit set. Element nodes reuse the key for
// alignment strings, which read as no marks.
func textFormat(raw json.RawMessage) Format {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0
	}
	return Format(uint64(n)) & formatAll
}

func headingLevel(tag string) int {
	if len(tag) == 2 && (tag[0] == 'h' || tag[0] == 'H') {
		if n, err := strconv.Atoi(tag[1:]); err == nil {
			return n
		}
	}
	return 2
}

// styleColor extracts the color declaration from an inline CSS string.
// A value without any declaration syntax is taken as the color itself.
func styleColor(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return ""
	}
	if !strings.Contains(style, ":") {
		return strings.TrimSuffix(style, ";")
	}
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(prop), "color") {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// uploadFromValue reads a populated upload relation. An unpopulated relation
// (a bare id) yields an Upload without URL, which renders nothing.
func uploadFromValue(raw json.RawMessage) *Upload {
	var v struct {
		URL    string  `json:"url"`
		Alt    string  `json:"alt"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if len(raw) == 0 || raw[0] != '{' {
		return &Upload{}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return &Upload{}
	}
	return &Upload{URL: v.URL, AltText: v.Alt, Width: int(v.Width), Height: int(v.Height)}
}
