package markdownify

/*
 Markdown archival rendering.

 A crawled page's sanitized DOM is additionally rendered to Markdown and
 written to disk as an archival artifact (ArtifactMarkdown), independent
 of the SQL-backed Persistence Port's Page/WordFrequency/Link rows. This
 gives operators a human-readable snapshot of what the crawler saw,
 alongside the structured data used for querying and re-crawling.
*/

import (
	"errors"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/crawlcore/crawlcore/internal/sanitizer"
	"golang.org/x/net/html"
)

// ErrNilContentNode is returned when a SanitizedHTMLDoc has no content
// node to render (structurally invalid or empty page).
var ErrNilContentNode = errors.New("markdownify: sanitized document has no content node")

// Render converts a sanitized page's content node to GitHub-flavored
// Markdown: headings, code blocks, and tables map structurally; links
// and images are preserved as-is, with no URL resolution performed here
// (link resolution is the extractor's job).
func Render(doc sanitizer.SanitizedHTMLDoc) (string, error) {
	node := doc.GetContentNode()
	if node == nil {
		return "", ErrNilContentNode
	}
	return RenderNode(node)
}

// RenderNode converts an arbitrary sanitized HTML node to Markdown.
func RenderNode(node *html.Node) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	out, err := conv.ConvertNode(node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
