package document

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Document sources frequently deliver HTML rather than plain text. The
// normalizer converts such payloads to markdown so heading extraction sees a
// uniform input; non-HTML input passes through untouched.

var (
	htmlTagPattern   = regexp.MustCompile(`(?is)<(?:html|body|div|p|h[1-6]|table|article)[\s>]`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// mdConverter is shared: html-to-markdown converters are safe for concurrent use.
var mdConverter = newMarkdownConverter()

func newMarkdownConverter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// NormalizeHTML converts an HTML payload to markdown. Plain-text input is
// returned unchanged. Conversion never fails hard: if the converter cannot
// handle the input, the text nodes are extracted directly.
func NormalizeHTML(raw string) string {
	if !looksLikeHTML(raw) {
		return raw
	}

	content := raw
	if hasPageChrome(raw) {
		// Full web pages go through readability first to isolate the main
		// content from navigation and boilerplate.
		if article, err := readability.FromReader(strings.NewReader(raw), &url.URL{}); err == nil && article.Content != "" {
			content = article.Content
		}
	}

	markdown, err := mdConverter.ConvertString(content)
	if err != nil {
		return extractTextNodes(raw)
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	return strings.TrimSpace(markdown)
}

// looksLikeHTML reports whether raw content appears to be an HTML document.
func looksLikeHTML(raw string) bool {
	return htmlTagPattern.MatchString(raw)
}

// hasPageChrome reports whether the document carries page furniture worth
// stripping with a readability pass.
func hasPageChrome(raw string) bool {
	lower := strings.ToLower(raw)
	for _, tag := range []string{"<nav", "<header", "<aside", "<footer", "<script"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// extractTextNodes walks the HTML tree and joins text nodes, the last-resort
// path when markdown conversion fails.
func extractTextNodes(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, "\n")
}
