package richtext

import "strings"

// Format is the bit set of inline marks carried by a Text node.
type Format uint8

// Mark bits as stored by the editor.
const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

// formatAll covers every defined mark.
const formatAll = FormatBold | FormatItalic | FormatStrikethrough | FormatUnderline |
	FormatCode | FormatSubscript | FormatSuperscript

// Has reports whether every bit of flag is set.
func (f Format) Has(flag Format) bool {
	return f&flag == flag
}

type mark struct {
	flag  Format
	open  string
	close string
}

// markOrder is the wrapping order, innermost first. It does not follow the
// numeric order of the bits.
var markOrder = []mark{
	{FormatBold, "<strong>", "</strong>"},
	{FormatItalic, "<em>", "</em>"},
	{FormatUnderline, "<u>", "</u>"},
	{FormatStrikethrough, "<s>", "</s>"},
	{FormatCode, `<code class="bg-gray-100 px-1.5 py-0.5 rounded text-sm">`, "</code>"},
	{FormatSubscript, "<sub>", "</sub>"},
	{FormatSuperscript, "<sup>", "</sup>"},
}

// applyMarks wraps already escaped text in the tags selected by f.
func applyMarks(escaped string, f Format) string {
	f &= formatAll
	if f == 0 {
		return escaped
	}
	var opens, closes []string
	for _, m := range markOrder {
		if f.Has(m.flag) {
			opens = append(opens, m.open)
			closes = append(closes, m.close)
		}
	}
	var b strings.Builder
	for i := len(opens) - 1; i >= 0; i-- {
		b.WriteString(opens[i])
	}
	b.WriteString(escaped)
	for _, c := range closes {
		b.WriteString(c)
	}
	return b.String()
}
