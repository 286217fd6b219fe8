package render

import "github.com/microcosm-cc/bluemonday"

// ArticlePolicy allows exactly the elements and attributes the serializer and
// the link injector emit. Link and image URLs are limited to relative paths
// and web schemes; rel values pass through untouched.
func ArticlePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"a", "p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "em", "u", "s", "code", "sub", "sup", "pre", "blockquote",
		"ol", "ul", "li",
		"figure", "figcaption", "img",
		"table", "tbody", "tr", "td",
	)
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.AllowRelativeURLs(true)
	p.AllowAttrs("href", "title", "rel", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height", "loading").OnElements("img")

	p.AllowStyles("color").OnElements("span")

	return p
}
