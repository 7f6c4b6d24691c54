package frontier

/*
 Frontier - manages crawl state & ordering
*/

import (
	"net/url"
	"time"
)

// URLStatus is a QueuedURL's position in its per-URL state machine.
type URLStatus string

const (
	StatusPending    URLStatus = "pending"
	StatusProcessing URLStatus = "processing"
	StatusCompleted  URLStatus = "completed"
	StatusFailed     URLStatus = "failed"
)

// QueuedURL is one entry in the frontier's priority queue. It mirrors the
// crawl's durable queued-URL record (see storage.QueuedURLRecord) but stays
// a frontier-local value type so the heap never needs to round-trip
// through the persistence port to reorder.
type QueuedURL struct {
	url          url.URL
	urlHash      string
	depth        int
	priority     int
	parentURL    string
	metadata     map[string]string
	discoveredAt time.Time
	scheduledAt  time.Time
	attempts     int
	status       URLStatus
	// index is maintained by container/heap; callers never set it.
	index int
}

func (q *QueuedURL) URL() url.URL               { return q.url }
func (q *QueuedURL) URLHash() string            { return q.urlHash }
func (q *QueuedURL) Depth() int                 { return q.depth }
func (q *QueuedURL) Priority() int              { return q.priority }
func (q *QueuedURL) ParentURL() string          { return q.parentURL }
func (q *QueuedURL) Metadata() map[string]string { return q.metadata }
func (q *QueuedURL) DiscoveredAt() time.Time    { return q.discoveredAt }
func (q *QueuedURL) ScheduledAt() time.Time     { return q.scheduledAt }
func (q *QueuedURL) Attempts() int              { return q.attempts }
func (q *QueuedURL) Status() URLStatus          { return q.status }

// BatchItem is one URL offered to PutBatch; priority is supplied once for
// the whole batch rather than per item, matching the bulk-discovery case
// (a page's outbound links all inherit its depth+1 at one shared priority).
type BatchItem struct {
	URL       url.URL
	Depth     int
	ParentURL string
	Metadata  map[string]string
}

// CrawlToken
// Frontier-issued, per-URL crawl Token
// It represents: "This URL, at this depth, in this deterministic order, is next"
// It contains no semantic policy decisions.
// It represents ordering + depth metadata only.
type CrawlToken struct {
	url   url.URL
	depth int
}

// NewCrawlToken creates a new CrawlToken with the given URL and depth.
// This constructor is provided for testing and internal use.
func NewCrawlToken(u url.URL, depth int) CrawlToken {
	return CrawlToken{
		url:   u,
		depth: depth,
	}
}

func (c *CrawlToken) URL() url.URL {
	return c.url
}

func (c *CrawlToken) Depth() int {
	return c.depth
}

// CrawlAdmissionCandidate represents a URL that has already been
// admitted by the engine's admission gate.
//
// Invariants:
// - Robots.txt checks have passed
// - Crawl scope and limits have been enforced
// - Frontier MUST treat this as an admitted URL
// - Frontier MUST NOT re-evaluate admission semantics
type CrawlAdmissionCandidate struct {
	// frontier MUST assume this URL is already admitted.
	targetURL url.URL

	// is it seed url or discovered during crawling?
	sourceContext SourceContext

	// additional information about the URL
	discoveryMetadata DiscoveryMetadata
}

func NewCrawlAdmissionCandidate(
	targetUrl url.URL,
	sourceContext SourceContext,
	discoveryMetadata DiscoveryMetadata,
) CrawlAdmissionCandidate {
	return CrawlAdmissionCandidate{
		targetURL:         targetUrl,
		sourceContext:     sourceContext,
		discoveryMetadata: discoveryMetadata,
	}
}

func (c *CrawlAdmissionCandidate) TargetURL() url.URL {
	return c.targetURL
}

func (c *CrawlAdmissionCandidate) SourceContext() SourceContext {
	return c.sourceContext
}

func (c *CrawlAdmissionCandidate) DiscoveryMetadata() DiscoveryMetadata {
	return c.discoveryMetadata
}

type SourceContext string

const (
	SourceSeed  SourceContext = "Seed"
	SourceCrawl SourceContext = "Crawl"
)

type DiscoveryMetadata struct {
	// the depth of the path relative to hostname where the url is found
	// hostname/root -> depth = 0
	depth         int
	priority      int
	parentURL     string
	delayOverride *time.Duration
}

func NewDiscoveryMetadata(
	depth int,
	delayOverride *time.Duration,
) DiscoveryMetadata {
	return DiscoveryMetadata{
		depth:         depth,
		delayOverride: delayOverride,
	}
}

func (d DiscoveryMetadata) Depth() int {
	return d.depth
}

func (d DiscoveryMetadata) Priority() int {
	return d.priority
}

func (d DiscoveryMetadata) ParentURL() string {
	return d.parentURL
}

func (d DiscoveryMetadata) DelayOverride() *time.Duration {
	return d.delayOverride
}

func (d DiscoveryMetadata) WithPriority(priority int) DiscoveryMetadata {
	d.priority = priority
	return d
}

func (d DiscoveryMetadata) WithParentURL(parent string) DiscoveryMetadata {
	d.parentURL = parent
	return d
}

// Stats is a point-in-time snapshot of frontier state, per the
// size/empty/stats contract.
type Stats struct {
	URLsQueued    int
	URLsProcessed int
	URLsFailed    int
	URLsDeferred  int
}
