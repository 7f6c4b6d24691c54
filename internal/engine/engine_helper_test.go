package engine

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/crawlcore/crawlcore/internal/config"
	"github.com/crawlcore/crawlcore/internal/frontier"
	"github.com/crawlcore/crawlcore/internal/metadata"
	"github.com/crawlcore/crawlcore/internal/robots"
	"github.com/crawlcore/crawlcore/internal/storage"
	"github.com/stretchr/testify/mock"
)

// mockAnyHost matches any host argument in a testify mock assertion.
const mockAnyHost = mock.Anything

// mustParseURL parses rawURL, failing the test on error.
func mustParseURL(t *testing.T, rawURL string) url.URL {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return *parsed
}

// buildTestConfig returns a minimal, valid Config rooted at seed.
func buildTestConfig(t *testing.T, seedURL string) config.Config {
	t.Helper()
	seed := mustParseURL(t, seedURL)
	cfg, err := config.WithDefault([]url.URL{seed}).Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	return cfg
}

// mockRateLimiter is a testify mock for limiter.RateLimiter.
type mockRateLimiter struct {
	mock.Mock
}

func newMockRateLimiter() *mockRateLimiter {
	m := new(mockRateLimiter)
	m.On("SetBaseDelay", mock.Anything).Return()
	m.On("SetJitter", mock.Anything).Return()
	m.On("SetRandomSeed", mock.Anything).Return()
	m.On("SetCrawlDelay", mock.Anything, mock.Anything).Return()
	m.On("Backoff", mock.Anything).Return()
	m.On("ResetBackoff", mock.Anything).Return()
	m.On("MarkLastFetchAsNow", mock.Anything).Return()
	m.On("SetRNG", mock.Anything).Return()
	m.On("ResolveDelay", mock.Anything).Return(time.Duration(0))
	return m
}

func (m *mockRateLimiter) SetBaseDelay(d time.Duration)               { m.Called(d) }
func (m *mockRateLimiter) SetJitter(d time.Duration)                  { m.Called(d) }
func (m *mockRateLimiter) SetRandomSeed(seed int64)                   { m.Called(seed) }
func (m *mockRateLimiter) SetCrawlDelay(host string, d time.Duration) { m.Called(host, d) }
func (m *mockRateLimiter) Backoff(host string)                        { m.Called(host) }
func (m *mockRateLimiter) ResetBackoff(host string)                   { m.Called(host) }
func (m *mockRateLimiter) MarkLastFetchAsNow(host string)             { m.Called(host) }
func (m *mockRateLimiter) SetRNG(rng interface{})                     { m.Called(rng) }
func (m *mockRateLimiter) ResolveDelay(host string) time.Duration {
	args := m.Called(host)
	return args.Get(0).(time.Duration)
}

// fakeFinalizer records the one call Engine is expected to make to it.
type fakeFinalizer struct {
	mu         sync.Mutex
	called     bool
	totalPages int
	totalErr   int
	duration   time.Duration
}

func (f *fakeFinalizer) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	f.totalPages = totalPages
	f.totalErr = totalErrors
	f.duration = duration
}

// fakeSink is a no-op MetadataSink that also satisfies CrawlFinalizer by
// embedding fakeFinalizer, mirroring how metadata.Recorder implements both
// interfaces in production.
type fakeSink struct {
	fakeFinalizer
	mu     sync.Mutex
	errors []string
}

func (s *fakeSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (s *fakeSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (s *fakeSink) RecordArtifact(metadata.ArtifactKind, string, []metadata.Attribute) {}
func (s *fakeSink) RecordError(_ time.Time, _ string, _ string, _ metadata.ErrorCause, msg string, _ []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *fakeSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}

var _ metadata.MetadataSink = (*fakeSink)(nil)
var _ metadata.CrawlFinalizer = (*fakeSink)(nil)

// fakeStore is an in-memory storage.Store double, avoiding a SQLite file
// per test the way the worker package's tests avoid a live network.
type fakeStore struct {
	mu sync.Mutex

	sessions map[string]storage.SessionRecord
	pages    []storage.PageRecord
	words    map[string]map[string]int
	links    []storage.LinkRecord
	errors   []storage.ErrorEventRecord
	queued   map[string][]storage.QueuedURLRecord

	stats storage.SessionStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]storage.SessionRecord),
		words:    make(map[string]map[string]int),
		queued:   make(map[string][]storage.QueuedURLRecord),
	}
}

func (s *fakeStore) Initialize() error { return nil }
func (s *fakeStore) Close() error      { return nil }

func (s *fakeStore) CreateSession(session storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	return nil
}

func (s *fakeStore) UpdateSession(session storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	return nil
}

func (s *fakeStore) GetSession(id string) (*storage.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *fakeStore) StorePage(page storage.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
	return nil
}

func (s *fakeStore) StoreWordFrequencies(sessionID, pageID string, frequencies map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[pageID] = frequencies
	return nil
}

func (s *fakeStore) StoreLinks(sessionID string, links []storage.LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, links...)
	return nil
}

func (s *fakeStore) StoreErrorEvent(event storage.ErrorEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, event)
	return nil
}

func (s *fakeStore) EnqueueURL(record storage.QueuedURLRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[record.SessionID()] = append(s.queued[record.SessionID()], record)
	return nil
}

func (s *fakeStore) MarkQueuedURLStatus(sessionID, urlHash string, status storage.QueuedURLStatus, errMessage string) error {
	return nil
}

func (s *fakeStore) LoadPendingQueuedURLs(sessionID string) ([]storage.QueuedURLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued[sessionID], nil
}

func (s *fakeStore) RecoverInterruptedURLs(sessionID string, stuckFor time.Duration) (int, error) {
	return 0, nil
}

func (s *fakeStore) CleanupOldQueueEntries(sessionID string, olderThan time.Duration) (int, error) {
	return 0, nil
}

func (s *fakeStore) GetSessionStats(sessionID string) (storage.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}

var _ storage.Store = (*fakeStore)(nil)

// robotsTestServer serves a fixed robots.txt body, mirroring the teacher's
// setupTestServer helper.
func robotsTestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, body)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// robotsTestServerWithStatus serves robots.txt with a fixed, non-200
// status, mirroring the teacher's setupTestServerWithStatus helper.
func robotsTestServerWithStatus(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(status)
			if body != "" {
				fmt.Fprint(w, body)
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRobotGate(t *testing.T, sink metadata.MetadataSink) robots.CachedRobot {
	t.Helper()
	gate := robots.NewCachedRobot(sink)
	gate.Init("crawlcore-test/1.0")
	return gate
}

// newTestFrontier returns an un-initialized frontier; NewWithDeps calls
// Init(cfg) itself once wired into an Engine.
func newTestFrontier(t *testing.T) *frontier.Frontier {
	t.Helper()
	return frontier.NewCrawlFrontier()
}
