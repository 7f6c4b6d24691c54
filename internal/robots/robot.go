package robots

/*
CachedRobot

Responsibilities:
- Fetch robots.txt per host (via RobotsFetcher) and map it to a ruleSet
- Cache the mapped ruleSet per host for a bounded TTL, so a long crawl
  re-validates its permissions periodically instead of trusting a
  robots.txt snapshot forever
- Decide whether a URL may be fetched, what crawl delay applies, and
  which sitemaps the host advertises
- Track per-host last-access time so a caller can ask how long it must
  wait before its next request without maintaining that bookkeeping
  itself

Robots checks occur before a URL enters the frontier.
*/

import (
	"context"
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/crawlcore/crawlcore/internal/metadata"
	"github.com/crawlcore/crawlcore/internal/robots/cache"
)

// defaultRobotsCacheTTL bounds how long a fetched ruleSet is trusted
// before CachedRobot re-fetches robots.txt for that host.
const defaultRobotsCacheTTL = time.Hour

// robotGateState holds CachedRobot's mutable bookkeeping behind a
// pointer so CachedRobot itself stays a small comparable value type
// (tests construct it on the stack and compare it against its zero
// value).
type robotGateState struct {
	mu         sync.Mutex
	sitemaps   map[string][]string
	lastAccess map[string]time.Time
}

// CachedRobot is the Robots Gate: the single place crawl code asks
// "may I fetch this?", "how long should I wait?", and "where are this
// host's sitemaps?" before a URL is admitted to the frontier.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	userAgent    string
	fetcher      *RobotsFetcher
	cache        cache.Cache
	ttl          time.Duration
	state        *robotGateState
}

// NewCachedRobot constructs a Robots Gate bound to the given metadata
// sink. Init or InitWithCache must be called before use.
func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{metadataSink: metadataSink}
}

// Init prepares the gate with an in-memory ruleSet cache.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache prepares the gate with a caller-supplied Cache backing
// the ruleSet TTL cache, letting callers swap in a shared or durable
// cache implementation instead of the default in-memory one.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.cache = c
	r.fetcher = NewRobotsFetcher(r.metadataSink, userAgent, nil)
	if r.ttl == 0 {
		r.ttl = defaultRobotsCacheTTL
	}
	r.state = &robotGateState{
		sitemaps:   make(map[string][]string),
		lastAccess: make(map[string]time.Time),
	}
}

// SetCacheTTL overrides the default one-hour ruleSet cache TTL.
func (r *CachedRobot) SetCacheTTL(ttl time.Duration) {
	r.ttl = ttl
}

// Decide evaluates target against its host's robots.txt and returns
// the permission decision. An error is returned only when robots.txt
// itself could not be resolved (server error, malformed request); a
// missing or empty robots.txt is not an error and yields an allowed
// Decision with Reason EmptyRuleSet.
func (r *CachedRobot) Decide(target url.URL) (Decision, error) {
	host := target.Hostname()
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rs, fetchErr := r.resolveRuleSet(scheme, host)
	if fetchErr != nil {
		if r.metadataSink != nil {
			r.metadataSink.RecordError(
				time.Now(),
				"robots",
				"fetch_robots_txt",
				mapRobotsErrorToMetadataCause(fetchErr),
				fetchErr.Error(),
				nil,
			)
		}
		return Decision{}, fetchErr
	}

	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet}, nil
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched}, nil
	}

	path := requestPath(target)
	allowed, reason := evaluatePath(path, rs.AllowRules(), rs.DisallowRules())

	var delay time.Duration
	if d := rs.CrawlDelay(); d != nil {
		delay = *d
	}

	return Decision{Url: target, Allowed: allowed, Reason: reason, CrawlDelay: delay}, nil
}

// CanFetch reports whether target may be crawled, failing open (true)
// if robots.txt could not be resolved at all.
func (r *CachedRobot) CanFetch(target url.URL) bool {
	decision, err := r.Decide(target)
	if err != nil {
		return true
	}
	return decision.Allowed
}

// CrawlDelay returns the crawl delay target's host declares, or zero
// if none is declared or robots.txt could not be resolved.
func (r *CachedRobot) CrawlDelay(target url.URL) time.Duration {
	decision, err := r.Decide(target)
	if err != nil {
		return 0
	}
	return decision.CrawlDelay
}

// Sitemaps returns the sitemap URLs target's host advertises, probing
// the well-known default location when robots.txt declares none. A
// sitemap index is expanded exactly one level: nested sitemap indexes
// are logged and skipped rather than recursed into.
func (r *CachedRobot) Sitemaps(target url.URL) []url.URL {
	host := target.Hostname()
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	// Best-effort: a failed robots.txt fetch still leaves the
	// well-known-path fallback below.
	_, _ = r.resolveRuleSet(scheme, host)

	r.state.mu.Lock()
	declared := append([]string(nil), r.state.sitemaps[host]...)
	r.state.mu.Unlock()

	if len(declared) == 0 {
		declared = []string{scheme + "://" + target.Host + "/sitemap.xml"}
	}

	seen := make(map[string]bool, len(declared))
	result := make([]url.URL, 0, len(declared))
	for _, raw := range declared {
		parsed, err := url.Parse(raw)
		if err != nil || seen[raw] {
			continue
		}
		seen[raw] = true
		result = append(result, *parsed)
		result = append(result, r.expandSitemapIndex(*parsed, seen)...)
	}
	return result
}

// ShouldWaitForCrawlDelay returns how long the caller must wait before
// its next request to target's host in order to honor the declared
// crawl delay, measured from the last time this method was asked
// about that host. Calling it records the current time as the most
// recent access.
func (r *CachedRobot) ShouldWaitForCrawlDelay(target url.URL) time.Duration {
	delay := r.CrawlDelay(target)
	if delay <= 0 {
		return 0
	}

	host := target.Hostname()
	now := time.Now()

	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	last, seen := r.state.lastAccess[host]
	r.state.lastAccess[host] = now
	if !seen {
		return 0
	}
	if elapsed := now.Sub(last); elapsed < delay {
		return delay - elapsed
	}
	return 0
}

// resolveRuleSet returns host's ruleSet, reusing a cached copy fetched
// within the last TTL window and refreshing it from the network
// otherwise.
func (r *CachedRobot) resolveRuleSet(scheme, host string) (ruleSet, *RobotsError) {
	key := cacheKey(scheme, host)
	if cached, found := r.cache.Get(key); found {
		if result, err := deserializeResult(cached); err == nil && time.Since(result.FetchedAt) < r.ttl {
			r.recordSitemaps(host, result.Response.Sitemaps)
			return MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt), nil
		}
	}

	result, fetchErr := r.fetcher.Fetch(context.Background(), scheme, host)
	if fetchErr != nil {
		return ruleSet{}, fetchErr
	}

	if serialized, err := serializeResult(result); err == nil {
		r.cache.Put(key, serialized)
	}
	r.recordSitemaps(host, result.Response.Sitemaps)
	return MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt), nil
}

func (r *CachedRobot) recordSitemaps(host string, sitemaps []string) {
	r.state.mu.Lock()
	r.state.sitemaps[host] = sitemaps
	r.state.mu.Unlock()
}

// sitemapIndexXML is the subset of the sitemap-index schema needed to
// discover nested sitemap locations.
type sitemapIndexXML struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

const maxSitemapBytes = 500 * 1024

// expandSitemapIndex fetches candidate and, if it is a sitemap index,
// returns the nested sitemap URLs it lists. Anything beyond this one
// level is left unexpanded.
func (r *CachedRobot) expandSitemapIndex(candidate url.URL, seen map[string]bool) []url.URL {
	resp, err := r.fetcher.HttpClient().Get(candidate.String())
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes+1))
	if err != nil {
		return nil
	}

	var index sitemapIndexXML
	if xml.Unmarshal(body, &index) != nil || len(index.Sitemaps) == 0 {
		return nil
	}

	if r.metadataSink != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"robots",
			"expand_sitemap_index",
			metadata.CauseContentInvalid,
			"sitemap index nesting beyond one level is not expanded: "+candidate.String(),
			nil,
		)
	}

	nested := make([]url.URL, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if entry.Loc == "" || seen[entry.Loc] {
			continue
		}
		seen[entry.Loc] = true
		if parsed, err := url.Parse(entry.Loc); err == nil {
			nested = append(nested, *parsed)
		}
	}
	return nested
}

// requestPath returns the path+query robots.txt rules are matched
// against, defaulting to "/" for an empty path.
func requestPath(u url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// evaluatePath applies the longest-match-wins rule, with ties
// resolved in favor of Allow, per the de-facto robots.txt extension
// both Google and Bing document.
func evaluatePath(path string, allows, disallows []pathRule) (bool, DecisionReason) {
	allowed := true
	reason := NoMatchingRules
	bestLen := -1

	consider := func(rules []pathRule, isAllow bool, onWin DecisionReason) {
		for _, rule := range rules {
			if !patternToRegexp(rule.Prefix()).MatchString(path) {
				continue
			}
			l := len(rule.Prefix())
			if l > bestLen || (l == bestLen && isAllow) {
				bestLen = l
				allowed = isAllow
				reason = onWin
			}
		}
	}

	consider(disallows, false, DisallowedByRobots)
	consider(allows, true, AllowedByRobots)

	return allowed, reason
}

var patternCache sync.Map // string -> *regexp.Regexp

// patternToRegexp translates a robots.txt path pattern (which may use
// "*" as a wildcard and a trailing "$" as an end anchor) into a
// regular expression matched against a request path.
func patternToRegexp(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}

	anchored := strings.HasSuffix(pattern, "$")
	body := pattern
	if anchored {
		body = strings.TrimSuffix(body, "$")
	}

	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(body, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}

	re := regexp.MustCompile(b.String())
	patternCache.Store(pattern, re)
	return re
}
