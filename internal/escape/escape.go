// Package escape neutralizes HTML-significant characters for text content and
// attribute values.
package escape

import "strings"

var replacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Text escapes s for use as element content.
func Text(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	return replacer.Replace(s)
}

// Attr escapes s for use inside a double-quoted attribute value.
// Both contexts share one table so a value is safe in either.
func Attr(s string) string {
	return Text(s)
}
