// ABOUTME: Markup normalization for article summaries
// ABOUTME: Strips HTML to plain text for lists and converts HTML to Markdown for reading

package content

import (
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
)

// htmlTagPattern matches common HTML tags
var htmlTagPattern = regexp.MustCompile(`<\s*(p|div|span|a|br|img|h[1-6]|ul|ol|li|table|tr|td|th|strong|em|b|i|code|pre|blockquote)[^>]*>`)

// stripPolicy removes every tag; the space keeps words in adjacent blocks apart.
var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// IsHTML checks if content appears to be HTML
func IsHTML(content string) bool {
	if strings.Contains(content, "<!DOCTYPE") || strings.Contains(content, "<html") {
		return true
	}
	return htmlTagPattern.MatchString(content)
}

// ToPlainText strips tags and decodes entities, collapsing runs of whitespace.
func ToPlainText(content string) string {
	if content == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

// ToMarkdown converts HTML content to Markdown
// If the content doesn't appear to be HTML, returns it unchanged
func ToMarkdown(content string) string {
	if content == "" || !IsHTML(content) {
		return content
	}

	markdown, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(markdown)
}
