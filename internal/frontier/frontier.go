package frontier

/*
Frontier Responsibilities
- Maintain crawl ordering (priority desc, depth asc, discovery order asc)
- Deduplicate URLs
- Track crawl depth
- Enforce max depth / max pages limits
- Own the per-URL lifecycle (pending -> processing -> completed/failed),
  including retry backoff on failure and per-domain rate-limited
  dequeuing
- Knows nothing about:
	- fetching
	- extraction
	- analysis
	- storage

It is a data structure + policy module, not a pipeline executor, and it
only keeps the in-memory ordering structures this file defines. With a
persistent queue enabled, the engine loads a session's pending rows from
storage.Store at start-up and submits them here; the Frontier's own state
transitions are not written to the store.
*/

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crawlcore/crawlcore/internal/config"
)

const defaultBloomCapacity = 100_000

// maxURLLength caps individual URLs admitted to the frontier, per the
// historical ~2000 byte de-facto URL length limit.
const maxURLLength = 2000

// Frontier owns crawl ordering, deduplication, depth bookkeeping, and the
// per-URL processing lifecycle. It is the sole authority for what gets
// crawled next; admission decisions (robots compliance, scope) are made
// upstream by the engine and handed to Frontier.Put/Submit as an
// already-admitted URL.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg config.Config

	pq      *priorityQueue
	visited Set[string]
	bloom   *bloomFilter

	// delayed holds items awaiting their retry backoff window; they move
	// into pq once their scheduledAt has passed.
	delayed []*QueuedURL

	// inFlight holds items currently checked out via Get/GetWithRateLimit,
	// keyed by urlHash, until MarkURLCompleted/MarkURLFailed resolves them.
	inFlight map[string]*QueuedURL

	// lastAccess tracks, per host, the last time GetWithRateLimit handed
	// out a URL for that host.
	lastAccess map[string]time.Time

	// depthCounts tracks how many URLs are currently pending (queued, not
	// yet dequeued) at each depth. Used by IsDepthExhausted/CurrentMinDepth
	// so callers can detect BFS-level completion without draining the heap.
	depthCounts map[int]int

	stats Stats
}

// NewFrontier constructs an empty, uninitialized Frontier. Callers must
// call Init before Put/Submit/Get/Dequeue.
func NewFrontier() *Frontier {
	return &Frontier{}
}

// NewCrawlFrontier is an alias of NewFrontier kept for call-site clarity
// where "crawl frontier" reads better than the bare type name.
func NewCrawlFrontier() *Frontier {
	return NewFrontier()
}

// Init resets the frontier to a clean state scoped to cfg's limits.
func (f *Frontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cfg = cfg
	f.pq = newPriorityQueue()
	f.visited = NewSet[string]()
	f.delayed = nil
	f.inFlight = make(map[string]*QueuedURL)
	f.lastAccess = make(map[string]time.Time)
	f.depthCounts = make(map[int]int)
	f.stats = Stats{}
	f.cond = sync.NewCond(&f.mu)

	if cfg.EnableBloomFilter() {
		capacity := uint(cfg.MaxPages())
		if capacity == 0 {
			capacity = defaultBloomCapacity
		}
		f.bloom = newBloomFilter(capacity, 0.01)
	} else {
		f.bloom = nil
	}
}

// Submit admits candidate into the frontier's pending queue, unless it is
// a duplicate of an already-seen URL or falls outside the configured depth
// or page-count limits. Submit performs no robots/scope checks of its own;
// the engine's admission gate must have already cleared those. It reports
// whether the candidate was admitted.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	meta := candidate.DiscoveryMetadata()
	return f.submitLocked(candidate.TargetURL(), meta.Depth(), meta.Priority(), meta.ParentURL(), nil)
}

// Put admits a single discovered URL into the frontier, per the same
// admission rules Submit applies. It reports whether the URL was
// admitted (false on a duplicate, a depth/page-limit violation, or a URL
// over the length cap).
func (f *Frontier) Put(target url.URL, depth, priority int, parentURL string, metadata map[string]string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitLocked(target, depth, priority, parentURL, metadata)
}

// PutBatch admits a set of discovered URLs (typically a page's outbound
// links) at one shared priority, returning how many were actually
// admitted.
func (f *Frontier) PutBatch(items []BatchItem, priority int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	admitted := 0
	for _, item := range items {
		if f.submitLocked(item.URL, item.Depth, priority, item.ParentURL, item.Metadata) {
			admitted++
		}
	}
	return admitted
}

func (f *Frontier) submitLocked(target url.URL, depth, priority int, parentURL string, metadata map[string]string) bool {
	if len(target.String()) > maxURLLength {
		return false
	}
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return false
	}

	canonical := canonicalizeURL(target)

	if f.bloom != nil {
		if f.bloom.mightContain(canonical) {
			if f.visited.Contains(canonical) {
				return false
			}
		}
	} else if f.visited.Contains(canonical) {
		return false
	}

	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.visited.Size() >= maxPages {
		return false
	}

	f.visited.Add(canonical)
	if f.bloom != nil {
		f.bloom.add(canonical)
	}

	item := &QueuedURL{
		url:          target,
		urlHash:      canonical,
		depth:        depth,
		priority:     priority,
		parentURL:    parentURL,
		metadata:     metadata,
		discoveredAt: timeNow(),
		status:       StatusPending,
	}
	f.pq.push(item)
	f.depthCounts[depth]++
	f.stats.URLsQueued++
	if f.cond != nil {
		f.cond.Broadcast()
	}
	return true
}

// Dequeue pops the next crawl token in priority order, or (zero, false)
// when the frontier has nothing pending. It does not participate in the
// per-URL completed/failed lifecycle; callers that need retry/backoff
// semantics should use Get or GetWithRateLimit instead.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.promoteDueLocked()
	item, ok := f.pq.pop()
	if !ok {
		return CrawlToken{}, false
	}

	f.depthCounts[item.depth]--
	return NewCrawlToken(item.url, item.depth), true
}

// Get pops the next QueuedURL in priority order, blocking up to timeout
// for one to become available. The returned item is marked processing
// and held in-flight until MarkURLCompleted/MarkURLFailed resolves it.
func (f *Frontier) Get(timeout time.Duration) (*QueuedURL, bool) {
	deadline := timeNow().Add(timeout)

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		f.promoteDueLocked()
		if item, ok := f.pq.pop(); ok {
			f.depthCounts[item.depth]--
			f.beginProcessingLocked(item)
			return item, true
		}

		remaining := deadline.Sub(timeNow())
		if remaining <= 0 {
			return nil, false
		}
		f.waitLocked(remaining)
	}
}

// GetWithRateLimit behaves like Get, except it also enforces a minimum
// spacing of domainDelay between two dequeues for the same host. If the
// next-highest-priority item's host was accessed too recently, and
// waiting out the remainder would exceed timeout, the item is left in
// the queue untouched (last_access is not updated) and GetWithRateLimit
// returns (nil, false) rather than blocking past its budget.
func (f *Frontier) GetWithRateLimit(domainDelay, timeout time.Duration) (*QueuedURL, bool) {
	deadline := timeNow().Add(timeout)

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		f.promoteDueLocked()

		item, ok := f.pq.peek()
		if !ok {
			remaining := deadline.Sub(timeNow())
			if remaining <= 0 {
				return nil, false
			}
			f.waitLocked(remaining)
			continue
		}

		host := item.url.Hostname()
		wait := time.Duration(0)
		if last, seen := f.lastAccess[host]; seen {
			if elapsed := timeNow().Sub(last); elapsed < domainDelay {
				wait = domainDelay - elapsed
			}
		}

		if wait == 0 {
			f.pq.pop()
			f.depthCounts[item.depth]--
			f.lastAccess[host] = timeNow()
			f.beginProcessingLocked(item)
			return item, true
		}

		remaining := deadline.Sub(timeNow())
		if wait > remaining {
			return nil, false
		}
		f.waitLocked(wait)
	}
}

func (f *Frontier) beginProcessingLocked(item *QueuedURL) {
	item.status = StatusProcessing
	f.inFlight[item.urlHash] = item
}

// promoteDueLocked moves retry-backoff items whose scheduledAt has
// passed from the delayed set into the live priority queue.
func (f *Frontier) promoteDueLocked() {
	if len(f.delayed) == 0 {
		return
	}
	now := timeNow()
	remaining := f.delayed[:0]
	for _, item := range f.delayed {
		if !item.scheduledAt.After(now) {
			item.status = StatusPending
			f.pq.push(item)
		} else {
			remaining = append(remaining, item)
		}
	}
	f.delayed = remaining
}

// waitLocked blocks on the frontier's condition variable for up to d,
// waking early if Put/PutBatch/MarkURLFailed makes new work available.
// f.mu must be held; it is released while waiting and reacquired before
// returning, per sync.Cond.Wait's contract.
func (f *Frontier) waitLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()
	f.cond.Wait()
}

// MarkCompleted records a successfully processed URL against the
// frontier's aggregate counters. Per the frontier's bookkeeping
// contract, URLsProcessed never decrements once incremented.
func (f *Frontier) MarkCompleted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.URLsProcessed++
}

// MarkFailed records a terminally failed URL in a separate counter from
// URLsProcessed, so a retried-then-succeeded URL is never double counted
// as both a failure and a success.
func (f *Frontier) MarkFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.URLsFailed++
}

// MarkURLCompleted resolves the in-flight item identified by urlHash
// (QueuedURL.URLHash, as returned by Get/GetWithRateLimit) as a success.
// It is a no-op if urlHash is not currently in flight.
func (f *Frontier) MarkURLCompleted(urlHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.inFlight[urlHash]
	if !ok {
		return
	}
	delete(f.inFlight, urlHash)
	item.status = StatusCompleted
	f.stats.URLsProcessed++
}

// MarkURLFailed resolves the in-flight item identified by urlHash as a
// failure. If the item has not yet exhausted queue_max_retries, it is
// rescheduled with exponential backoff (2^attempts seconds); its
// priority is left unchanged, per the frontier's decision to keep retry
// count and priority independent (see DESIGN.md). Once retries are
// exhausted, it is counted as a terminal failure and dropped.
func (f *Frontier) MarkURLFailed(urlHash string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.inFlight[urlHash]
	if !ok {
		return
	}
	delete(f.inFlight, urlHash)
	item.attempts++

	if maxRetries := f.cfg.QueueMaxRetries(); maxRetries > 0 && item.attempts > maxRetries {
		item.status = StatusFailed
		f.stats.URLsFailed++
		return
	}

	backoff := time.Duration(1<<uint(item.attempts)) * time.Second
	item.scheduledAt = timeNow().Add(backoff)
	f.depthCounts[item.depth]++
	f.delayed = append(f.delayed, item)
	if f.cond != nil {
		f.cond.Broadcast()
	}
}

// Size returns the number of tokens currently pending in the queue
// (items awaiting a retry backoff window are not counted as pending).
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pq.Len()
}

// Empty reports whether the frontier has no pending tokens.
func (f *Frontier) Empty() bool {
	return f.Size() == 0
}

// Stats returns a point-in-time snapshot of frontier bookkeeping.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := f.stats
	stats.URLsQueued = f.pq.Len()
	stats.URLsDeferred = len(f.delayed)
	return stats
}

// VisitedCount returns the number of unique, canonicalized URLs ever
// submitted to the frontier. This set is append-only: it never shrinks
// as URLs are dequeued or processed.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// IsDepthExhausted reports whether every URL at depth has already been
// dequeued (or none was ever submitted). Negative depths are always
// exhausted since they cannot occur.
func (f *Frontier) IsDepthExhausted(depth int) bool {
	if depth < 0 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.depthCounts[depth] <= 0
}

// CurrentMinDepth returns the shallowest depth with at least one pending
// URL, or -1 if the frontier is empty. Callers use this to track BFS-level
// progression without draining the heap.
func (f *Frontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	min := -1
	for depth, count := range f.depthCounts {
		if count <= 0 {
			continue
		}
		if min == -1 || depth < min {
			min = depth
		}
	}
	return min
}

// timeNow is a seam kept separate from time.Now so discovery ordering
// ties can be deterministically reproduced in tests if ever needed.
func timeNow() time.Time {
	return time.Now()
}

// canonicalizeURL normalizes a URL for dedup purposes: lowercases the
// host, strips the scheme's default port, and drops a trailing slash
// from non-root paths. Query strings and fragments are preserved since
// they can change page identity.
func canonicalizeURL(u url.URL) string {
	host := strings.ToLower(u.Host)
	if h, port, ok := strings.Cut(host, ":"); ok {
		if isDefaultPort(u.Scheme, port) {
			host = h
		}
	}

	path := u.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	canonical := strings.ToLower(u.Scheme) + "://" + host + path
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}
	return canonical
}

func isDefaultPort(scheme, port string) bool {
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	switch strings.ToLower(scheme) {
	case "http":
		return p == 80
	case "https":
		return p == 443
	default:
		return false
	}
}
