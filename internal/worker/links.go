package worker

/*
 Link extraction operates on the unmodified parsed document, not the
 sanitized content node: the sanitizer's own URL collection intentionally
 works post-chrome-removal and leaves relative references unresolved,
 which is the wrong contract here - discovered links must resolve against
 the page they were found on and must not be lost just because they lived
 in navigation chrome the sanitizer stripped for text-extraction purposes.
*/

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// droppedLinkSchemes never produce a crawlable URL.
var droppedLinkSchemes = map[string]struct{}{
	"mailto":     {},
	"tel":        {},
	"javascript": {},
	"data":       {},
}

// extractLinks scans every a[href] under documentRoot, resolves each
// href against source, strips its fragment, and returns the results
// deduplicated in first-seen order.
func extractLinks(source url.URL, documentRoot *html.Node) []url.URL {
	if documentRoot == nil {
		return nil
	}

	doc := goquery.NewDocumentFromNode(documentRoot)

	seen := make(map[string]struct{})
	var links []url.URL

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if _, dropped := droppedLinkSchemes[parsed.Scheme]; dropped {
			return
		}

		resolved := source.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		key := resolved.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, *resolved)
	})

	return links
}
