package extractor

import "golang.org/x/net/html"

// ExtractionResult holds the extraction outcome.
// DocumentRoot is the original parsed HTML document.
// ContentNode is the extracted meaningful content node (semantic container).
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
}

// ContentScoreMultiplier holds weights for the heuristic content-density
// scorer used when no semantic container or known selector matches.
// calculateContentScore does not read these fields; it uses fixed weights
// (1 per 50 non-whitespace chars, 5 per paragraph, 10 per heading, 15 per
// code block, 2 per list item).
type ContentScoreMultiplier struct {
	NonWhitespaceDivisor float64
	Paragraphs           float64
	Headings             float64
	CodeBlocks           float64
	ListItems            float64
}

// MeaningfulThreshold holds limits for whether a node counts as real
// content rather than navigation chrome. isMeaningful does not read these
// fields; it uses fixed limits (50 non-whitespace chars, one paragraph or
// code block, at most 80% link text).
type MeaningfulThreshold struct {
	MinNonWhitespace    int
	MinHeadings         int
	MinParagraphsOrCode int
	MaxLinkDensity      float64
}

// ExtractParam configures the heuristic fallback layer (Layer 3) of
// content extraction.
type ExtractParam struct {
	BodySpecificityBias  float64
	LinkDensityThreshold float64
	ScoreMultiplier      ContentScoreMultiplier
	Threshold            MeaningfulThreshold
}
