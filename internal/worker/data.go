package worker

import (
	"net/url"
	"time"

	"github.com/crawlcore/crawlcore/internal/analyzer"
	"github.com/crawlcore/crawlcore/internal/markdownify"
)

// Task is one URL handed to a worker for the full fetch-extract-analyze
// pipeline.
type Task struct {
	URL       url.URL
	URLHash   string
	Depth     int
	SessionID string
	ParentURL string
	Attempt   int
}

// Result is everything a worker learned processing a Task, regardless of
// whether the pipeline succeeded. Err is set and Success is false for a
// fetch, extract or sanitize failure; partial fields from earlier stages
// (e.g. HTTPStatus on a sanitization failure) are still populated where
// available. An archive failure leaves Success true and MarkdownPath empty.
type Result struct {
	Task Task

	WorkerID int
	Success  bool
	Err      error

	HTTPStatus  int
	ContentType string
	Title       string

	RawSizeBytes       int64
	ExtractedSizeBytes int64

	Analysis        analyzer.WordAnalysis
	MarkdownPath    string
	MarkdownSummary markdownify.Summary

	DiscoveredLinks []url.URL

	Timings map[string]time.Duration
}
