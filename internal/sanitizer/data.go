package sanitizer

import (
	"net/url"

	"golang.org/x/net/html"
)

type SanitizedHTMLDoc struct {
	contentNode    *html.Node
	discoveredUrls []url.URL
}

func (s *SanitizedHTMLDoc) GetDiscoveredURLs() []url.URL {
	return s.discoveredUrls
}

// GetContentNode returns the sanitized content root, ready for text
// extraction or link resolution.
func (s *SanitizedHTMLDoc) GetContentNode() *html.Node {
	return s.contentNode
}

// NewSanitizedHTMLDocForTest creates a SanitizedHTMLDoc for testing
// purposes. This allows test packages to construct fixtures without
// accessing unexported fields directly.
func NewSanitizedHTMLDocForTest(contentNode *html.Node, discoveredUrls []url.URL) SanitizedHTMLDoc {
	return SanitizedHTMLDoc{
		contentNode:    contentNode,
		discoveredUrls: discoveredUrls,
	}
}
