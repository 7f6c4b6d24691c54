package textclean

/*
 Text cleaning - turns a sanitized HTML content node into the flat
 prose text the Word Analyzer consumes.

 Walks the DOM directly with golang.org/x/net/html (already a sanitizer
 dependency) rather than round-tripping through a Markdown renderer: the
 sanitizer already stripped script/style/nav/etc, so the only remaining
 work is collecting text nodes and running spec.md's own clean-text
 rules over the result.
*/

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	urlPattern    = regexp.MustCompile(`\bhttps?://\S+`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	dotRun        = regexp.MustCompile(`\.{4,}`)
	dashRun       = regexp.MustCompile(`-{4,}`)
)

// nonVisualTags never contribute to extracted text even though the
// sanitizer leaves their nodes in place (e.g. noscript fallbacks).
var nonVisualTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
}

// ExtractText collects every text node under root, in document order,
// joined by single spaces.
func ExtractText(root *html.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	walk(root, &b)
	return b.String()
}

func walk(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := nonVisualTags[n.Data]; skip {
			return
		}
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
}

// Clean applies spec.md's text-cleaning rules to raw extracted text:
// non-printable characters outside the printable ASCII and extended
// Unicode ranges are stripped, URLs and email addresses are removed,
// runs of more than three "." or "-" are collapsed, and whitespace is
// collapsed to single spaces.
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = stripNonPrintable(text)
	text = dotRun.ReplaceAllString(text, "...")
	text = dashRun.ReplaceAllString(text, "---")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripNonPrintable drops runes outside U+0020-U+007E (printable ASCII,
// including space) and U+00A0-U+FFFF (extended Unicode text), while
// preserving newlines/tabs as plain spaces so words don't get glued
// together.
func stripNonPrintable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteRune(' ')
		case r >= 0x0020 && r <= 0x007E:
			b.WriteRune(r)
		case r >= 0x00A0 && r <= 0xFFFF:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractAndClean is the composed step the worker pipeline calls: pull
// the prose text out of the sanitized DOM, then run it through Clean.
func ExtractAndClean(root *html.Node) string {
	return Clean(ExtractText(root))
}
