// Package richtext models block-based rich-text documents and serializes them
// to HTML.
//
// A document is a tree of Node values rooted at *Root. The node set is closed:
// every kind is a concrete type in this package and the serializer dispatches
// with a type switch. Content from newer editors that carries an unmodelled
// type decodes to *Unknown, which renders its children transparently.
package richtext

// Node is a single element of a document tree.
type Node interface {
	node()
}

// Root is the top of a document.
type Root struct {
	Children []Node
}

// Paragraph is a block of inline content.
type Paragraph struct {
	Children []Node
}

// Text is a run of characters with a uniform set of marks.
type Text struct {
	Text   string
	Format Format
	// Color is a CSS color value applied as the outermost wrap.
	Color string
}

// Heading is a section title. Level is clamped to 1..6 on output.
type Heading struct {
	Level int
	// ID is the persisted anchor id. Empty means derive one from the text.
	ID       string
	Children []Node
}

// Link is a hyperlink around inline content.
type Link struct {
	URL          string
	OpenInNewTab bool
	Children     []Node
}

// List holds ListItem children.
type List struct {
	Ordered  bool
	Children []Node
}

// ListItem is one entry of a List.
type ListItem struct {
	Children []Node
}

// Quote is a block quotation.
type Quote struct {
	Children []Node
}

// Code is a preformatted code block. Marks on its text children are ignored.
type Code struct {
	Language string
	Children []Node
}

// LineBreak is a hard line break.
type LineBreak struct{}

// HorizontalRule is a thematic break.
type HorizontalRule struct{}

// Upload is an embedded media item, rendered as a figure.
type Upload struct {
	URL     string
	AltText string
	Width   int
	Height  int
}

// Table holds TableRow children.
type Table struct {
	Children []Node
}

// TableRow holds TableCell children.
type TableRow struct {
	Children []Node
}

// TableCell is a single table cell. Header cells are not distinguished.
type TableCell struct {
	Children []Node
}

// Block is a custom component embedded in the document.
type Block struct {
	BlockType string
	Fields    map[string]any
}

// Unknown is a node whose type is not modelled here.
type Unknown struct {
	Type     string
	Children []Node
}

func (*Root) node()           {}
func (*Paragraph) node()      {}
func (*Text) node()           {}
func (*Heading) node()        {}
func (*Link) node()           {}
func (*List) node()           {}
func (*ListItem) node()       {}
func (*Quote) node()          {}
func (*Code) node()           {}
func (*LineBreak) node()      {}
func (*HorizontalRule) node() {}
func (*Upload) node()         {}
func (*Table) node()          {}
func (*TableRow) node()       {}
func (*TableCell) node()      {}
func (*Block) node()          {}
func (*Unknown) node()        {}

// Children returns the child list of n, or nil for leaf kinds.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Root:
		return v.Children
	case *Paragraph:
		return v.Children
	case *Heading:
		return v.Children
	case *Link:
		return v.Children
	case *List:
		return v.Children
	case *ListItem:
		return v.Children
	case *Quote:
		return v.Children
	case *Code:
		return v.Children
	case *Table:
		return v.Children
	case *TableRow:
		return v.Children
	case *TableCell:
		return v.Children
	case *Unknown:
		return v.Children
	}
	return nil
}

// PlainText returns the concatenated text of every Text descendant of n.
// LineBreak nodes contribute a newline.
func PlainText(n Node) string {
	var b []byte
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Text:
			b = append(b, v.Text...)
		case *LineBreak:
			b = append(b, '\n')
		default:
			for _, c := range Children(n) {
				walk(c)
			}
		}
	}
	walk(n)
	return string(b)
}
