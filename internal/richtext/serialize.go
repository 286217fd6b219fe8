package richtext

import (
	"strconv"
	"strings"

	"github.com/starford/folio/internal/escape"
)

const (
	defaultUploadWidth  = 1200
	defaultUploadHeight = 800
)

var headingClasses = [...]string{
	"text-4xl font-bold my-6 scroll-mt-24",
	"text-3xl font-bold my-5 scroll-mt-24",
	"text-2xl font-bold my-4 scroll-mt-24",
	"text-xl font-bold my-3 scroll-mt-24",
	"text-lg font-bold my-3 scroll-mt-24",
	"text-base font-bold my-2 scroll-mt-24",
}

// OutlineEntry is one heading of a rendered document.
type OutlineEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Result is the output of Render.
type Result struct {
	HTML    string
	Outline []OutlineEntry
}

// Serialize renders root to HTML. A nil root renders as the empty string.
func Serialize(root *Root) string {
	return Render(root).HTML
}

// Render renders root to HTML and collects the heading outline. Output is
// deterministic for a given tree; synthetic heading ids are numbered per call.
func Render(root *Root) Result {
	r := &renderer{ids: make(map[string]struct{})}
	if root != nil {
		r.writeChildren(root.Children)
	}
	return Result{HTML: r.b.String(), Outline: r.outline}
}

type renderer struct {
	b       strings.Builder
	ids     map[string]struct{}
	seq     int
	outline []OutlineEntry
}

func (r *renderer) writeChildren(nodes []Node) {
	for _, n := range nodes {
		r.write(n)
	}
}

func (r *renderer) write(n Node) {
	switch v := n.(type) {
	case nil:
	case *Root:
		r.writeChildren(v.Children)
	case *Paragraph:
		r.b.WriteString(`<p class="mb-4 leading-relaxed">`)
		mark := r.b.Len()
		r.writeChildren(v.Children)
		if r.b.Len() == mark {
			r.b.WriteString("<br />")
		}
		r.b.WriteString("</p>")
	case *Text:
		r.writeText(v)
	case *Heading:
		r.writeHeading(v)
	case *Link:
		url := v.URL
		if url == "" {
			url = "#"
		}
		r.b.WriteString(`<a href="`)
		r.b.WriteString(escape.Attr(url))
		r.b.WriteString(`" class="text-blue-600 hover:text-blue-800 underline transition-colors"`)
		if v.OpenInNewTab {
			r.b.WriteString(newTabAttrs)
		}
		r.b.WriteByte('>')
		r.writeChildren(v.Children)
		r.b.WriteString("</a>")
	case *List:
		if v.Ordered {
			r.wrap(`<ol class="list-decimal ml-6 my-4 space-y-2">`, "</ol>", v.Children)
		} else {
			r.wrap(`<ul class="list-disc ml-6 my-4 space-y-2">`, "</ul>", v.Children)
		}
	case *ListItem:
		r.wrap(`<li class="leading-relaxed">`, "</li>", v.Children)
	case *Quote:
		r.wrap(`<blockquote class="border-l-4 border-gray-300 pl-4 py-2 my-4 italic text-gray-700 bg-gray-50">`, "</blockquote>", v.Children)
	case *Code:
		r.b.WriteString(`<pre class="bg-gray-900 text-gray-100 p-4 rounded-lg my-4 overflow-x-auto"><code class="text-sm font-mono">`)
		r.b.WriteString(escape.Text(PlainText(v)))
		r.b.WriteString("</code></pre>")
	case *LineBreak:
		r.b.WriteString("<br />")
	case *HorizontalRule:
		r.b.WriteString(`<hr class="my-8 border-t border-gray-300" />`)
	case *Upload:
		r.writeUpload(v)
	case *Table:
		r.wrap(`<div class="overflow-x-auto my-6"><table class="min-w-full border-collapse border border-gray-300"><tbody>`,
			"</tbody></table></div>", v.Children)
	case *TableRow:
		r.wrap(`<tr class="border-b border-gray-300">`, "</tr>", v.Children)
	case *TableCell:
		r.wrap(`<td class="border border-gray-300 px-4 py-2">`, "</td>", v.Children)
	case *Block:
		r.writeBlock(v)
	case *Unknown:
		r.writeChildren(v.Children)
	}
}

func (r *renderer) wrap(openTag, closeTag string, nodes []Node) {
	r.b.WriteString(openTag)
	r.writeChildren(nodes)
	r.b.WriteString(closeTag)
}

func (r *renderer) writeText(t *Text) {
	if t.Text == "" {
		return
	}
	out := applyMarks(escape.Text(t.Text), t.Format)
	if t.Color != "" {
		out = `<span style="color:` + escape.Attr(t.Color) + `" class="inline">` + out + "</span>"
	}
	r.b.WriteString(out)
}

func (r *renderer) writeHeading(h *Heading) {
	level := min(max(h.Level, 1), 6)
	tag := "h" + strconv.Itoa(level)
	id := r.headingID(h)

	r.b.WriteString("<" + tag + ` id="`)
	r.b.WriteString(escape.Attr(id))
	r.b.WriteString(`" class="` + headingClasses[level-1] + `">`)
	r.writeChildren(h.Children)
	r.b.WriteString("</" + tag + ">")

	r.outline = append(r.outline, OutlineEntry{
		ID:    id,
		Text:  strings.Join(strings.Fields(PlainText(h)), " "),
		Level: level,
	})
}

// headingID returns the persisted id when present. Otherwise it derives
// heading-<slug>, or heading-<n> when the slug is empty, and appends -2, -3
// and so on until the id is unused in this document.
func (r *renderer) headingID(h *Heading) string {
	if h.ID != "" {
		r.ids[h.ID] = struct{}{}
		return h.ID
	}
	base := Slugify(PlainText(h))
	if base == "" {
		r.seq++
		base = strconv.Itoa(r.seq)
	}
	base = "heading-" + base
	id := base
	for n := 2; ; n++ {
		if _, taken := r.ids[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	r.ids[id] = struct{}{}
	return id
}

func (r *renderer) writeUpload(u *Upload) {
	if u.URL == "" {
		return
	}
	w, h := u.Width, u.Height
	if w <= 0 {
		w = defaultUploadWidth
	}
	if h <= 0 {
		h = defaultUploadHeight
	}
	alt := escape.Attr(u.AltText)

	r.b.WriteString(`<figure class="my-6"><div class="relative w-full h-auto rounded-lg overflow-hidden"><img src="`)
	r.b.WriteString(escape.Attr(u.URL))
	r.b.WriteString(`" alt="`)
	r.b.WriteString(alt)
	r.b.WriteString(`" width="` + strconv.Itoa(w) + `" height="` + strconv.Itoa(h) + `"`)
	r.b.WriteString(` class="w-full h-auto object-cover rounded-lg" loading="lazy" /></div>`)
	if u.AltText != "" {
		r.b.WriteString(`<figcaption class="text-sm text-gray-600 text-center mt-2 italic">`)
		r.b.WriteString(escape.Text(u.AltText))
		r.b.WriteString("</figcaption>")
	}
	r.b.WriteString("</figure>")
}
