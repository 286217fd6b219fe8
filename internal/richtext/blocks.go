package richtext

import (
	"strconv"
	"strings"

	"github.com/starford/folio/internal/escape"
)

// Custom block types understood by the serializer.
const (
	BlockCustomButton = "customButton"
	BlockCallout      = "callout"
)

const newTabAttrs = ` target="_blank" rel="noopener noreferrer"`

const buttonBase = "inline-flex items-center justify-center px-6 py-3 "

var buttonStyles = map[string]string{
	"primary":   buttonBase + "bg-blue-600 text-white rounded-lg font-medium hover:bg-blue-700 transition",
	"secondary": buttonBase + "bg-gray-700 text-white rounded-lg font-medium hover:bg-gray-800 transition",
	"outline":   buttonBase + "border-2 border-blue-600 text-blue-600 rounded-lg font-medium hover:bg-blue-50 transition",
	"ghost":     buttonBase + "text-blue-600 rounded-lg font-medium hover:bg-blue-50 transition",
}

var buttonSizes = map[string]string{
	"small":  "text-sm px-4 py-2",
	"medium": "text-base",
	"large":  "text-lg px-8 py-4",
}

var buttonAlignments = map[string]bool{"left": true, "center": true, "right": true}

var calloutColors = map[string]string{
	"info":    "border-blue-500 bg-blue-50 text-blue-900",
	"warning": "border-yellow-500 bg-yellow-50 text-yellow-900",
	"success": "border-green-500 bg-green-50 text-green-900",
	"error":   "border-red-500 bg-red-50 text-red-900",
}

// writeBlock renders a custom component. Unknown block types render nothing.
func (r *renderer) writeBlock(b *Block) {
	switch b.BlockType {
	case BlockCustomButton:
		r.writeButton(b.Fields)
	case BlockCallout:
		r.writeCallout(b.Fields)
	}
}

func (r *renderer) writeButton(f map[string]any) {
	text := fieldString(f, "buttonText")
	if text == "" {
		text = "Learn more"
	}
	href := fieldString(f, "buttonLink")
	if href == "" {
		href = "#"
	}
	style, ok := buttonStyles[fieldString(f, "buttonStyle")]
	if !ok {
		style = buttonStyles["primary"]
	}
	size, ok := buttonSizes[fieldString(f, "buttonSize")]
	if !ok {
		size = buttonSizes["medium"]
	}
	align := fieldString(f, "alignment")
	if !buttonAlignments[align] {
		align = "left"
	}

	r.b.WriteString(`<div class="my-6 text-`)
	r.b.WriteString(align)
	r.b.WriteString(`"><a href="`)
	r.b.WriteString(escape.Attr(href))
	r.b.WriteString(`" class="`)
	r.b.WriteString(style)
	r.b.WriteByte(' ')
	r.b.WriteString(size)
	r.b.WriteByte('"')
	if fieldBool(f, "openInNewTab") {
		r.b.WriteString(newTabAttrs)
	}
	r.b.WriteByte('>')
	r.b.WriteString(escape.Text(text))
	r.b.WriteString(`</a></div>`)
}

func (r *renderer) writeCallout(f map[string]any) {
	colors, ok := calloutColors[fieldString(f, "type")]
	if !ok {
		colors = calloutColors["info"]
	}
	r.b.WriteString(`<div class="my-4 border-l-4 p-4 rounded `)
	r.b.WriteString(colors)
	r.b.WriteString(`">`)
	r.b.WriteString(escape.Text(fieldString(f, "content")))
	r.b.WriteString(`</div>`)
}

// fieldString reads a scalar field as text. Numbers are formatted, other
// types read as empty.
func fieldString(f map[string]any, key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func fieldBool(f map[string]any, key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}
