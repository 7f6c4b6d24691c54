package engine

/*
 Engine - owns the dispatch loop: fill the worker pool from the frontier,
 drain results, persist them, and feed discovered links back in.

 The dispatch loop itself is grounded in the synchronous fetch-extract-...
 pipeline an older scheduler ran one URL at a time; here N workers run it
 concurrently, so the loop's job narrows to admission, supply, and
 draining rather than running the pipeline itself.
*/

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crawlcore/crawlcore/internal/analyzer"
	"github.com/crawlcore/crawlcore/internal/config"
	"github.com/crawlcore/crawlcore/internal/extractor"
	"github.com/crawlcore/crawlcore/internal/fetcher"
	"github.com/crawlcore/crawlcore/internal/frontier"
	"github.com/crawlcore/crawlcore/internal/metadata"
	"github.com/crawlcore/crawlcore/internal/robots"
	"github.com/crawlcore/crawlcore/internal/sanitizer"
	"github.com/crawlcore/crawlcore/internal/storage"
	"github.com/crawlcore/crawlcore/internal/worker"
	"github.com/crawlcore/crawlcore/pkg/failure"
	"github.com/crawlcore/crawlcore/pkg/hashutil"
	"github.com/crawlcore/crawlcore/pkg/limiter"
	"github.com/crawlcore/crawlcore/pkg/retry"
	"github.com/crawlcore/crawlcore/pkg/timeutil"
)

// recoveryStuckAfter is how long a queued_urls row may sit in
// "processing" after a crash before it is considered abandoned and
// reset to pending.
const recoveryStuckAfter = 10 * time.Minute

// fillPollInterval bounds how long the dispatch loop's fill phase waits
// on a single frontier poll before checking shutdown conditions again.
const fillPollInterval = 200 * time.Millisecond

// Engine runs one crawl session end to end: seeding, admission,
// dispatch, and persistence of results.
type Engine struct {
	cfg          config.Config
	store        storage.Store
	frontier     *frontier.Frontier
	robotGate    *robots.CachedRobot
	rateLimiter  limiter.RateLimiter
	pool         *worker.Pool
	metadataSink metadata.MetadataSink
	finalizer    metadata.CrawlFinalizer

	httpClient *http.Client
}

// New wires a real Frontier, Robots Gate, rate limiter, and worker pool
// from cfg.
func New(cfg config.Config, store storage.Store, metadataSink metadata.MetadataSink) *Engine {
	robotGate := robots.NewCachedRobot(metadataSink)
	robotGate.Init(cfg.UserAgent())

	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())

	httpClient := &http.Client{Timeout: cfg.Timeout()}

	htmlFetcher := fetcher.NewHtmlFetcher(metadataSink)
	htmlFetcher.Init(httpClient)

	domExtractor := extractor.NewDomExtractor(metadataSink, extractParamFromConfig(cfg))
	htmlSanitizer := sanitizer.NewHTMLSanitizer(metadataSink)

	pool := worker.NewPool(
		cfg,
		&htmlFetcher,
		&domExtractor,
		&htmlSanitizer,
		analyzer.NewAnalyzer(),
		metadataSink,
		RetryParam(cfg),
	)

	var finalizer metadata.CrawlFinalizer
	if f, ok := metadataSink.(metadata.CrawlFinalizer); ok {
		finalizer = f
	}

	return NewWithDeps(cfg, store, frontier.NewCrawlFrontier(), &robotGate, rateLimiter, pool, metadataSink, finalizer, httpClient)
}

// NewWithDeps wires an Engine from already-constructed collaborators,
// for injecting fakes in tests.
func NewWithDeps(
	cfg config.Config,
	store storage.Store,
	frontier *frontier.Frontier,
	robotGate *robots.CachedRobot,
	rateLimiter limiter.RateLimiter,
	pool *worker.Pool,
	metadataSink metadata.MetadataSink,
	finalizer metadata.CrawlFinalizer,
	httpClient *http.Client,
) *Engine {
	frontier.Init(cfg)
	return &Engine{
		cfg:          cfg,
		store:        store,
		frontier:     frontier,
		robotGate:    robotGate,
		rateLimiter:  rateLimiter,
		pool:         pool,
		metadataSink: metadataSink,
		finalizer:    finalizer,
		httpClient:   httpClient,
	}
}

// extractParamFromConfig builds the extraction tuning struct from the
// nine config getters it is assembled from.
func extractParamFromConfig(cfg config.Config) extractor.ExtractParam {
	return extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}
}

// RetryParam builds the shared retry policy every fetch attempt uses
// from cfg's politeness and backoff settings.
func RetryParam(cfg config.Config) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)
}

// Run executes one crawl session from seeding through termination,
// persisting results as they complete.
func (e *Engine) Run(ctx context.Context, sessionName string) (CrawlResult, error) {
	start := time.Now()

	sessionID, err := e.startSession(sessionName)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("start session: %w", err)
	}

	if err := e.seedFrontier(sessionID); err != nil {
		return CrawlResult{}, fmt.Errorf("seed frontier: %w", err)
	}

	e.dispatch(ctx, sessionID)

	return e.finishSession(sessionID, start)
}

// admit applies the robots-gate-before-frontier admission policy: a
// target is never placed in the frontier until its host's robots.txt
// has been consulted. Rejections and resolution failures are recorded
// but never propagated as a hard failure of the caller.
func (e *Engine) admit(target url.URL, depth int, parentURL string) {
	decision, err := e.robotGate.Decide(target)
	if err != nil {
		if robotsErr, ok := err.(*robots.RobotsError); ok {
			e.recordRobotsErrorAndBackoff(robotsErr, target)
		}
		return
	}
	if !decision.Allowed {
		return
	}

	host := target.Hostname()
	e.rateLimiter.ResetBackoff(host)
	if decision.CrawlDelay > 0 {
		e.rateLimiter.SetCrawlDelay(host, decision.CrawlDelay)
	}

	candidate := frontier.NewCrawlAdmissionCandidate(
		target,
		sourceContextFor(depth),
		frontier.NewDiscoveryMetadata(depth, nil).WithParentURL(parentURL).WithPriority(-depth),
	)
	e.frontier.Submit(candidate)
}

func sourceContextFor(depth int) frontier.SourceContext {
	if depth == 0 {
		return frontier.SourceSeed
	}
	return frontier.SourceCrawl
}

// recordRobotsErrorAndBackoff mirrors the politeness contract: only
// server-side failure signals (429, 5xx) earn a backoff. A malformed
// robots.txt or a one-off network hiccup should not throttle a host
// that may otherwise be perfectly reachable.
func (e *Engine) recordRobotsErrorAndBackoff(robotsErr *robots.RobotsError, target url.URL) {
	e.metadataSink.RecordError(
		time.Now(),
		"engine",
		"admit",
		metadata.CauseNetworkFailure,
		robotsErr.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, target.String())},
	)

	switch robotsErr.Cause {
	case robots.ErrCauseHttpTooManyRequests, robots.ErrCauseHttpServerError:
		e.rateLimiter.Backoff(target.Hostname())
	}
}

// seedFrontier recovers a persisted queue on resume, or admits the
// configured seeds (plus each seed's discovered sitemap pages) on a
// fresh run.
func (e *Engine) seedFrontier(sessionID string) error {
	if e.cfg.EnablePersistentQueue() {
		if _, err := e.store.RecoverInterruptedURLs(sessionID, recoveryStuckAfter); err != nil {
			return err
		}
		pending, err := e.store.LoadPendingQueuedURLs(sessionID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			for _, p := range pending {
				target, err := url.Parse(p.URL())
				if err != nil {
					continue
				}
				e.frontier.Put(*target, p.Depth(), p.Priority(), p.ParentURL(), nil)
			}
			return nil
		}
	}

	for _, seed := range e.cfg.SeedURLs() {
		e.admit(seed, 0, "")
		for _, sitemapLoc := range e.robotGate.Sitemaps(seed) {
			for _, page := range e.fetchSitemapPages(sitemapLoc) {
				e.admit(page, 1, seed.String())
			}
		}
	}
	return nil
}

// urlsetXML is the subset of the sitemap urlset schema needed to pull
// page locations out of a sitemap file the robots gate located.
type urlsetXML struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

const maxSitemapPageBytes = 2 * 1024 * 1024

// fetchSitemapPages fetches and parses a <urlset> sitemap, returning
// the page URLs it lists. Anything that isn't a well-formed urlset
// (including a sitemap index, which the robots gate already expanded
// one level) yields no pages rather than an error.
func (e *Engine) fetchSitemapPages(loc url.URL) []url.URL {
	resp, err := e.httpClient.Get(loc.String())
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapPageBytes+1))
	if err != nil {
		return nil
	}

	var set urlsetXML
	if xml.Unmarshal(body, &set) != nil {
		return nil
	}

	pages := make([]url.URL, 0, len(set.URLs))
	for _, entry := range set.URLs {
		if entry.Loc == "" {
			continue
		}
		if parsed, err := url.Parse(entry.Loc); err == nil {
			pages = append(pages, *parsed)
		}
	}
	return pages
}

// dispatch runs the fixed worker pool against the frontier until ctx
// is cancelled, MaxPages is reached, or the frontier is exhausted with
// no work in flight.
func (e *Engine) dispatch(ctx context.Context, sessionID string) {
	workerCount := e.cfg.ConcurrentWorkers()
	if workerCount < 1 {
		workerCount = 1
	}
	queueSize := e.cfg.URLQueueSize()
	if queueSize < 1 {
		queueSize = workerCount
	}

	tasks := make(chan worker.Task, queueSize)
	results := make(chan worker.Result, queueSize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.pool.Run(runCtx, id, tasks, results)
		}(i + 1)
	}

	var inFlight atomic.Int64
	var pagesDone atomic.Int64

	resultsDone := make(chan struct{})
	go func() {
		defer close(resultsDone)
		for result := range results {
			e.handleResult(sessionID, result)
			inFlight.Add(-1)
			pagesDone.Add(1)
		}
	}()

	maxPages := int64(e.cfg.MaxPages())

fill:
	for {
		select {
		case <-runCtx.Done():
			break fill
		default:
		}

		if maxPages > 0 && pagesDone.Load()+inFlight.Load() >= maxPages {
			break fill
		}

		queued, ok := e.frontier.GetWithRateLimit(e.cfg.BaseDelay(), fillPollInterval)
		if !ok {
			if e.frontier.Empty() && inFlight.Load() == 0 {
				break fill
			}
			continue fill
		}

		host := queued.URL().Hostname()
		e.rateLimiter.MarkLastFetchAsNow(host)

		task := worker.Task{
			URL:       queued.URL(),
			URLHash:   queued.URLHash(),
			Depth:     queued.Depth(),
			SessionID: sessionID,
			ParentURL: queued.ParentURL(),
			Attempt:   queued.Attempts(),
		}

		inFlight.Add(1)
		select {
		case tasks <- task:
		case <-runCtx.Done():
			inFlight.Add(-1)
			break fill
		}
	}

	close(tasks)
	wg.Wait()
	close(results)
	<-resultsDone
}

// handleResult persists one worker.Result, updates the frontier's
// per-URL lifecycle, and re-admits any links the result discovered.
func (e *Engine) handleResult(sessionID string, result worker.Result) {
	host := result.Task.URL.Hostname()
	storageHash, err := hashutil.HashBytes([]byte(result.Task.URL.String()), hashutil.HashAlgoBLAKE3)
	if err != nil {
		return
	}

	if !result.Success {
		e.frontier.MarkURLFailed(result.Task.URLHash, result.Err)
		e.storeFailure(sessionID, result)
		if classified, ok := result.Err.(failure.ClassifiedError); ok && classified.Severity() == failure.SeverityRecoverable {
			e.rateLimiter.Backoff(host)
		}
		return
	}

	e.frontier.MarkURLCompleted(result.Task.URLHash)
	e.rateLimiter.ResetBackoff(host)

	pageID, err := hashutil.HashBytes([]byte(fmt.Sprintf("%s|%s|%d", sessionID, storageHash, result.Task.Attempt)), hashutil.HashAlgoBLAKE3)
	if err != nil {
		return
	}

	page := storage.NewPageRecord(pageID, sessionID, result.Task.URL.String(), storageHash, result.Task.ParentURL, result.Task.Depth, result.HTTPStatus).
		WithContent(result.ContentType, result.Task.URL.String(), result.Title).
		WithWordCounts(result.Analysis.TotalWords, result.Analysis.UniqueWords).
		WithSizes(result.RawSizeBytes, result.ExtractedSizeBytes, false).
		WithTimings(timingsToStorage(result.Timings))

	if err := e.store.StorePage(page); err != nil {
		e.metadataSink.RecordError(time.Now(), "engine", "StorePage", metadata.CauseStorageFailure, err.Error(), nil)
		return
	}

	if err := e.store.StoreWordFrequencies(sessionID, pageID, result.Analysis.WordFrequencies); err != nil {
		e.metadataSink.RecordError(time.Now(), "engine", "StoreWordFrequencies", metadata.CauseStorageFailure, err.Error(), nil)
	}

	e.storeLinks(sessionID, pageID, result)
	e.admitDiscoveredLinks(result)
}

func (e *Engine) storeFailure(sessionID string, result worker.Result) {
	message := ""
	if result.Err != nil {
		message = result.Err.Error()
	}
	event := storage.NewErrorEventRecord(sessionID, "", result.Task.URL.String(), result.Task.Depth, "worker.process", "fetch", "recoverable", message)
	if err := e.store.StoreErrorEvent(event); err != nil {
		e.metadataSink.RecordError(time.Now(), "engine", "StoreErrorEvent", metadata.CauseStorageFailure, err.Error(), nil)
	}
}

func (e *Engine) storeLinks(sessionID, pageID string, result worker.Result) {
	if len(result.DiscoveredLinks) == 0 {
		return
	}

	allowed := e.cfg.AllowedHosts()
	links := make([]storage.LinkRecord, 0, len(result.DiscoveredLinks))
	for _, link := range result.DiscoveredLinks {
		targetHash, err := hashutil.HashBytes([]byte(link.String()), hashutil.HashAlgoBLAKE3)
		if err != nil {
			continue
		}
		linkType := storage.LinkExternal
		if _, ok := allowed[link.Hostname()]; ok {
			linkType = storage.LinkInternal
		}
		links = append(links, storage.NewLinkRecord(sessionID, pageID, link.String(), targetHash, linkType))
	}

	if err := e.store.StoreLinks(sessionID, links); err != nil {
		e.metadataSink.RecordError(time.Now(), "engine", "StoreLinks", metadata.CauseStorageFailure, err.Error(), nil)
	}
}

// admitDiscoveredLinks re-applies the admission gate to every link a
// successful result discovered, scoped to allowed hosts and the depth
// limit, before handing survivors to the frontier.
func (e *Engine) admitDiscoveredLinks(result worker.Result) {
	if len(result.DiscoveredLinks) == 0 {
		return
	}

	nextDepth := result.Task.Depth + 1
	if maxDepth := e.cfg.MaxDepth(); maxDepth > 0 && nextDepth > maxDepth {
		return
	}

	allowed := e.cfg.AllowedHosts()
	for _, link := range result.DiscoveredLinks {
		if len(allowed) > 0 {
			if _, ok := allowed[link.Hostname()]; !ok {
				continue
			}
		}
		e.admit(link, nextDepth, result.Task.URL.String())
	}
}

func timingsToStorage(timings map[string]time.Duration) storage.PageTimings {
	out := make(storage.PageTimings, len(timings))
	for stage, d := range timings {
		out[stage] = d.Milliseconds()
	}
	return out
}
