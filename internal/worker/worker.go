package worker

/*
 Worker Pool - runs the per-URL pipeline to completion for one Task
 before picking up the next.

 fetch -> extract -> sanitize -> clean text -> analyze -> archive ->
 extract links

 The teacher ran this pipeline sequentially inside one goroutine; Pool
 generalizes it to N goroutines draining a shared Task channel and
 writing to a shared Result channel, so the engine can size concurrency
 independently of scheduling.
*/

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/crawlcore/crawlcore/internal/analyzer"
	"github.com/crawlcore/crawlcore/internal/config"
	"github.com/crawlcore/crawlcore/internal/extractor"
	"github.com/crawlcore/crawlcore/internal/fetcher"
	"github.com/crawlcore/crawlcore/internal/markdownify"
	"github.com/crawlcore/crawlcore/internal/metadata"
	"github.com/crawlcore/crawlcore/internal/sanitizer"
	"github.com/crawlcore/crawlcore/internal/textclean"
	"github.com/crawlcore/crawlcore/pkg/failure"
	"github.com/crawlcore/crawlcore/pkg/fileutil"
	"github.com/crawlcore/crawlcore/pkg/hashutil"
	"github.com/crawlcore/crawlcore/pkg/retry"
	"golang.org/x/net/html"
)

// Extractor is the subset of extractor.DomExtractor's behavior Pool
// depends on. DomExtractor has no pointer-free interface of its own;
// this lets Pool accept a fake in tests without touching the real DOM
// scoring heuristics.
type Extractor interface {
	Extract(sourceUrl url.URL, htmlByte []byte) (extractor.ExtractionResult, failure.ClassifiedError)
}

// Pool runs Tasks through the fetch/extract/sanitize/analyze/archive
// pipeline across a fixed set of goroutines.
type Pool struct {
	fetcher      fetcher.Fetcher
	extractor    Extractor
	sanitizer    sanitizer.Sanitizer
	analyzer     *analyzer.Analyzer
	metadataSink metadata.MetadataSink
	retryParam   retry.RetryParam

	userAgent string
	outputDir string
	dryRun    bool
}

// NewPool constructs a Pool from a built Config plus the pipeline stage
// implementations it will drive.
func NewPool(
	cfg config.Config,
	f fetcher.Fetcher,
	e Extractor,
	s sanitizer.Sanitizer,
	a *analyzer.Analyzer,
	metadataSink metadata.MetadataSink,
	retryParam retry.RetryParam,
) *Pool {
	return &Pool{
		fetcher:      f,
		extractor:    e,
		sanitizer:    s,
		analyzer:     a,
		metadataSink: metadataSink,
		retryParam:   retryParam,
		userAgent:    cfg.UserAgent(),
		outputDir:    cfg.OutputDir(),
		dryRun:       cfg.DryRun(),
	}
}

// Run drains tasks until the channel closes or ctx is cancelled, writing
// one Result per Task to results. It never panics out of a Task failure:
// a fetch, extract or sanitize error is captured on the Result instead,
// and an archive error is recorded to the metadata sink.
func (p *Pool) Run(ctx context.Context, workerID int, tasks <-chan Task, results chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			result := p.process(ctx, workerID, task)
			select {
			case results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) process(ctx context.Context, workerID int, task Task) Result {
	result := Result{
		Task:     task,
		WorkerID: workerID,
		Timings:  make(map[string]time.Duration),
	}

	fetchParam := fetcher.NewFetchParam(task.URL, p.userAgent)

	start := time.Now()
	fetchResult, err := p.fetcher.Fetch(ctx, task.Depth, fetchParam, p.retryParam)
	result.Timings["fetch"] = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	result.HTTPStatus = fetchResult.Code()
	result.ContentType = fetchResult.Headers()["Content-Type"]
	result.RawSizeBytes = int64(fetchResult.SizeByte())

	start = time.Now()
	extraction, err := p.extractor.Extract(task.URL, fetchResult.Body())
	result.Timings["extract"] = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}

	start = time.Now()
	sanitized, err := p.sanitizer.Sanitize(extraction.ContentNode)
	result.Timings["sanitize"] = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}

	start = time.Now()
	cleanText := textclean.ExtractAndClean(sanitized.GetContentNode())
	result.Timings["clean_text"] = time.Since(start)
	result.ExtractedSizeBytes = int64(len(cleanText))

	start = time.Now()
	result.Analysis = p.analyzer.Analyze(cleanText, false)
	result.Timings["analyze"] = time.Since(start)

	result.Title = extractTitle(extraction.DocumentRoot)

	start = time.Now()
	path, summary, archiveErr := p.archive(task, sanitized)
	result.Timings["archive"] = time.Since(start)
	if archiveErr != nil {
		p.metadataSink.RecordError(
			time.Now(),
			"worker",
			"Pool.archive",
			metadata.CauseStorageFailure,
			archiveErr.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, task.URL.String())},
		)
	} else {
		result.MarkdownPath = path
		result.MarkdownSummary = summary
	}

	start = time.Now()
	result.DiscoveredLinks = extractLinks(task.URL, extraction.DocumentRoot)
	result.Timings["extract_links"] = time.Since(start)

	result.Success = true
	return result
}

// archive renders a Markdown snapshot of the sanitized page and writes it
// to outputDir, in a file named by a hash of the source URL so repeated
// crawls of the same page overwrite rather than accumulate. In dry-run
// mode nothing is written; the path the file would have and the
// structural summary are still returned so callers can record them.
func (p *Pool) archive(task Task, sanitized sanitizer.SanitizedHTMLDoc) (string, markdownify.Summary, error) {
	content, err := markdownify.Render(sanitized)
	if err != nil {
		return "", markdownify.Summary{}, err
	}

	summary := markdownify.Summarize(content)

	urlHash, err := hashutil.HashBytes([]byte(task.URL.String()), hashutil.HashAlgoBLAKE3)
	if err != nil {
		return "", summary, err
	}

	relDir := filepath.Join("pages", task.SessionID)
	fileName := fmt.Sprintf("%s.md", urlHash)
	fullPath := filepath.Join(p.outputDir, relDir, fileName)

	if p.dryRun {
		return fullPath, summary, nil
	}

	if classifiedErr := fileutil.EnsureDir(p.outputDir, relDir); classifiedErr != nil {
		return "", summary, classifiedErr
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return "", summary, err
	}

	p.metadataSink.RecordArtifact(metadata.ArtifactMarkdown, fullPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, task.URL.String()),
	})

	return fullPath, summary, nil
}

// extractTitle pulls the document's <title> text, trimmed, or "" if
// absent.
func extractTitle(documentRoot *html.Node) string {
	if documentRoot == nil {
		return ""
	}
	doc := goquery.NewDocumentFromNode(documentRoot)
	return strings.TrimSpace(doc.Find("title").First().Text())
}
