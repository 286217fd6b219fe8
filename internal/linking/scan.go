package linking

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

type span struct{ start, end int }

var entityRe = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)

// tagCounter answers whether a position sits inside an open, unclosed
// instance of one tag. It counts opening and closing tag occurrences before
// the position and requires a closing occurrence after it, without parsing.
type tagCounter struct {
	openEnds    []int
	closeEnds   []int
	closeStarts []int
}

func newTagCounter(doc string, m tagMatcher) tagCounter {
	var c tagCounter
	for _, loc := range m.open.FindAllStringIndex(doc, -1) {
		c.openEnds = append(c.openEnds, loc[1])
	}
	for _, loc := range m.close.FindAllStringIndex(doc, -1) {
		c.closeStarts = append(c.closeStarts, loc[0])
		c.closeEnds = append(c.closeEnds, loc[1])
	}
	return c
}

func (c tagCounter) inside(pos int) bool {
	opens := sort.SearchInts(c.openEnds, pos+1)
	closes := sort.SearchInts(c.closeEnds, pos+1)
	if opens <= closes {
		return false
	}
	return sort.SearchInts(c.closeStarts, pos) < len(c.closeStarts)
}

// tagMatcher pairs the opening and closing expressions for one tag name.
type tagMatcher struct {
	open, close *regexp.Regexp
}

func avoidMatcher(tag string) tagMatcher {
	q := regexp.QuoteMeta(tag)
	return tagMatcher{
		open:  regexp.MustCompile(`(?i)<` + q + `[\s>]`),
		close: regexp.MustCompile(`(?i)</` + q + `>`),
	}
}

var anchorMatcher = tagMatcher{
	open:  regexp.MustCompile(`(?i)<a\s`),
	close: regexp.MustCompile(`(?i)</a>`),
}

// document is the position index of one HTML snapshot.
type document struct {
	text     []span
	entities []span
	avoid    []tagCounter
	anchor   tagCounter
}

func analyze(doc string, avoid []tagMatcher) *document {
	d := &document{
		text:   textSpans(doc),
		anchor: newTagCounter(doc, anchorMatcher),
	}
	for _, m := range entityRe.FindAllStringIndex(doc, -1) {
		d.entities = append(d.entities, span{m[0], m[1]})
	}
	for _, m := range avoid {
		d.avoid = append(d.avoid, newTagCounter(doc, m))
	}
	return d
}

// linkable reports whether [start, end) may be wrapped in a new link.
func (d *document) linkable(start, end int) bool {
	if !d.inText(start, end) {
		return false
	}
	for _, c := range d.avoid {
		if c.inside(start) {
			return false
		}
	}
	return !d.anchor.inside(start)
}

// inText reports whether [start, end) lies within one text run and touches no
// character reference.
func (d *document) inText(start, end int) bool {
	i := sort.Search(len(d.text), func(i int) bool { return d.text[i].end > start })
	if i == len(d.text) || d.text[i].start > start || end > d.text[i].end {
		return false
	}
	j := sort.Search(len(d.entities), func(j int) bool { return d.entities[j].end > start })
	return j == len(d.entities) || d.entities[j].start >= end
}

// textSpans returns the byte ranges of character data in doc. Tags, attribute
// values and comments are excluded.
func textSpans(doc string) []span {
	var out []span
	z := html.NewTokenizer(strings.NewReader(doc))
	pos := 0
	for {
		tt := z.Next()
		n := len(z.Raw())
		if tt == html.ErrorToken {
			return out
		}
		if tt == html.TextToken && n > 0 {
			if k := len(out); k > 0 && out[k-1].end == pos {
				out[k-1].end = pos + n
			} else {
				out = append(out, span{pos, pos + n})
			}
		}
		pos += n
	}
}
