// Package render turns post bodies into safe HTML.
package render

import (
	"bytes"
	"fmt"
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// AllowedTags is the element allow-list applied to rendered post bodies.
var AllowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code",
	"em", "i", "li", "ol", "pre", "strong", "ul",
	"h1", "h2", "h3", "p",
}

var (
	md         goldmark.Markdown
	postPolicy *bluemonday.Policy
	initOnce   sync.Once
)

func initRenderer() {
	initOnce.Do(func() {
		md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

		postPolicy = bluemonday.NewPolicy()
		postPolicy.AllowStandardURLs()
		postPolicy.AllowElements(AllowedTags...)
		postPolicy.AllowAttrs("href").OnElements("a")
		postPolicy.AllowAttrs("title").OnElements("a", "abbr", "acronym")
		postPolicy.RequireNoFollowOnLinks(true)
	})
}

// Markdown converts body to HTML and strips everything outside AllowedTags.
func Markdown(body string) (string, error) {
	initRenderer()

	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return postPolicy.Sanitize(buf.String()), nil
}

// Plain escapes body and wraps it in a paragraph.
func Plain(body string) string {
	return "<p>" + html.EscapeString(body) + "</p>"
}
