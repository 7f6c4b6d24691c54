package storage

import (
	"encoding/json"
	"time"
)

// SessionState is the lifecycle state of a crawl session.
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
	SessionPaused    SessionState = "paused"
)

// SessionRecord mirrors the Session entity: created once per crawl run,
// mutated only by the engine, terminal when state reaches Completed or
// Failed.
type SessionRecord struct {
	id             string
	name           string
	configSnapshot string
	state          SessionState
	createdAt      time.Time
	startedAt      *time.Time
	endedAt        *time.Time
	pagesCrawled   int
	pagesFailed    int
	totalWords     int
}

func NewSessionRecord(id, name, configSnapshot string) SessionRecord {
	return SessionRecord{
		id:             id,
		name:           name,
		configSnapshot: configSnapshot,
		state:          SessionPending,
		createdAt:      time.Now(),
	}
}

func (s SessionRecord) ID() string                { return s.id }
func (s SessionRecord) Name() string              { return s.name }
func (s SessionRecord) ConfigSnapshot() string    { return s.configSnapshot }
func (s SessionRecord) State() SessionState       { return s.state }
func (s SessionRecord) CreatedAt() time.Time      { return s.createdAt }
func (s SessionRecord) StartedAt() *time.Time     { return s.startedAt }
func (s SessionRecord) EndedAt() *time.Time       { return s.endedAt }
func (s SessionRecord) PagesCrawled() int         { return s.pagesCrawled }
func (s SessionRecord) PagesFailed() int          { return s.pagesFailed }
func (s SessionRecord) TotalWords() int           { return s.totalWords }

func (s SessionRecord) WithState(state SessionState) SessionRecord {
	s.state = state
	return s
}

func (s SessionRecord) WithStartedAt(t time.Time) SessionRecord {
	s.startedAt = &t
	return s
}

func (s SessionRecord) WithEndedAt(t time.Time) SessionRecord {
	s.endedAt = &t
	return s
}

func (s SessionRecord) WithCounters(pagesCrawled, pagesFailed, totalWords int) SessionRecord {
	s.pagesCrawled = pagesCrawled
	s.pagesFailed = pagesFailed
	s.totalWords = totalWords
	return s
}

// QueuedURLStatus mirrors QueuedURL.status from the data model.
type QueuedURLStatus string

const (
	QueuedPending    QueuedURLStatus = "pending"
	QueuedProcessing QueuedURLStatus = "processing"
	QueuedCompleted  QueuedURLStatus = "completed"
	QueuedFailed     QueuedURLStatus = "failed"
)

// QueuedURLRecord is the durable mirror of frontier.QueuedURL, keyed by
// (session_id, url_hash) so a re-enqueue of the same URL updates the
// existing row instead of duplicating it.
type QueuedURLRecord struct {
	sessionID     string
	urlHash       string
	url           string
	depth         int
	priority      int
	parentURL     string
	discoveredAt  time.Time
	scheduledAt   time.Time
	attempts      int
	lastAttemptAt *time.Time
	status        QueuedURLStatus
	errorMessage  string
}

func NewQueuedURLRecord(
	sessionID, urlHash, url string,
	depth, priority int,
	parentURL string,
	discoveredAt, scheduledAt time.Time,
) QueuedURLRecord {
	return QueuedURLRecord{
		sessionID:    sessionID,
		urlHash:      urlHash,
		url:          url,
		depth:        depth,
		priority:     priority,
		parentURL:    parentURL,
		discoveredAt: discoveredAt,
		scheduledAt:  scheduledAt,
		status:       QueuedPending,
	}
}

func (q QueuedURLRecord) SessionID() string          { return q.sessionID }
func (q QueuedURLRecord) URLHash() string            { return q.urlHash }
func (q QueuedURLRecord) URL() string                { return q.url }
func (q QueuedURLRecord) Depth() int                 { return q.depth }
func (q QueuedURLRecord) Priority() int              { return q.priority }
func (q QueuedURLRecord) ParentURL() string          { return q.parentURL }
func (q QueuedURLRecord) DiscoveredAt() time.Time    { return q.discoveredAt }
func (q QueuedURLRecord) ScheduledAt() time.Time     { return q.scheduledAt }
func (q QueuedURLRecord) Attempts() int              { return q.attempts }
func (q QueuedURLRecord) LastAttemptAt() *time.Time  { return q.lastAttemptAt }
func (q QueuedURLRecord) Status() QueuedURLStatus    { return q.status }
func (q QueuedURLRecord) ErrorMessage() string       { return q.errorMessage }

// PageTimings holds the per-stage duration map (in milliseconds) a worker
// collects while running the fetch→extract→sanitize→clean→analyze
// pipeline. Keys are stage names.
type PageTimings map[string]int64

// PageRecord is an attempted fetch outcome, created exactly once per
// worker result and immutable thereafter.
type PageRecord struct {
	id                 string
	sessionID          string
	url                string
	urlHash            string
	parentURL          string
	depth              int
	httpStatus         int
	contentType        string
	finalURL           string
	title              string
	totalWords         int
	uniqueWords        int
	errorMessage       string
	rawSizeBytes       int64
	extractedSizeBytes int64
	connectionReused   bool
	timings            PageTimings
	createdAt          time.Time
}

func NewPageRecord(
	id, sessionID, url, urlHash, parentURL string,
	depth, httpStatus int,
) PageRecord {
	return PageRecord{
		id:        id,
		sessionID: sessionID,
		url:       url,
		urlHash:   urlHash,
		parentURL: parentURL,
		depth:     depth,
		httpStatus: httpStatus,
		timings:   PageTimings{},
		createdAt: time.Now(),
	}
}

func (p PageRecord) ID() string                 { return p.id }
func (p PageRecord) SessionID() string          { return p.sessionID }
func (p PageRecord) URL() string                { return p.url }
func (p PageRecord) URLHash() string            { return p.urlHash }
func (p PageRecord) ParentURL() string          { return p.parentURL }
func (p PageRecord) Depth() int                 { return p.depth }
func (p PageRecord) HTTPStatus() int            { return p.httpStatus }
func (p PageRecord) ContentType() string        { return p.contentType }
func (p PageRecord) FinalURL() string           { return p.finalURL }
func (p PageRecord) Title() string              { return p.title }
func (p PageRecord) TotalWords() int            { return p.totalWords }
func (p PageRecord) UniqueWords() int           { return p.uniqueWords }
func (p PageRecord) ErrorMessage() string       { return p.errorMessage }
func (p PageRecord) RawSizeBytes() int64        { return p.rawSizeBytes }
func (p PageRecord) ExtractedSizeBytes() int64  { return p.extractedSizeBytes }
func (p PageRecord) ConnectionReused() bool     { return p.connectionReused }
func (p PageRecord) Timings() PageTimings       { return p.timings }
func (p PageRecord) CreatedAt() time.Time       { return p.createdAt }

func (p PageRecord) WithContent(contentType, finalURL, title string) PageRecord {
	p.contentType, p.finalURL, p.title = contentType, finalURL, title
	return p
}

func (p PageRecord) WithWordCounts(total, unique int) PageRecord {
	p.totalWords, p.uniqueWords = total, unique
	return p
}

func (p PageRecord) WithError(message string) PageRecord {
	p.errorMessage = message
	return p
}

func (p PageRecord) WithSizes(rawBytes, extractedBytes int64, connectionReused bool) PageRecord {
	p.rawSizeBytes, p.extractedSizeBytes, p.connectionReused = rawBytes, extractedBytes, connectionReused
	return p
}

func (p PageRecord) WithTimings(timings PageTimings) PageRecord {
	p.timings = timings
	return p
}

// WordFrequencyRecord is emitted only for successful pages, for words
// surviving the analyzer's stopword/length filter.
type WordFrequencyRecord struct {
	pageID     string
	sessionID  string
	word       string
	frequency  int
	wordLength int
}

func NewWordFrequencyRecord(pageID, sessionID, word string, frequency int) WordFrequencyRecord {
	return WordFrequencyRecord{
		pageID:     pageID,
		sessionID:  sessionID,
		word:       word,
		frequency:  frequency,
		wordLength: len([]rune(word)),
	}
}

func (w WordFrequencyRecord) PageID() string    { return w.pageID }
func (w WordFrequencyRecord) SessionID() string { return w.sessionID }
func (w WordFrequencyRecord) Word() string      { return w.word }
func (w WordFrequencyRecord) Frequency() int    { return w.frequency }
func (w WordFrequencyRecord) WordLength() int   { return w.wordLength }

// LinkType classifies a discovered link as staying within or leaving the
// crawl's allowed-domain scope.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// LinkRecord is one outbound link discovered on a page, emitted in bulk
// per page.
type LinkRecord struct {
	sessionID     string
	sourcePageID  string
	targetURL     string
	targetURLHash string
	linkType      LinkType
	discoveredAt  time.Time
}

func NewLinkRecord(sessionID, sourcePageID, targetURL, targetURLHash string, linkType LinkType) LinkRecord {
	return LinkRecord{
		sessionID:     sessionID,
		sourcePageID:  sourcePageID,
		targetURL:     targetURL,
		targetURLHash: targetURLHash,
		linkType:      linkType,
		discoveredAt:  time.Now(),
	}
}

func (l LinkRecord) SessionID() string      { return l.sessionID }
func (l LinkRecord) SourcePageID() string   { return l.sourcePageID }
func (l LinkRecord) TargetURL() string      { return l.targetURL }
func (l LinkRecord) TargetURLHash() string  { return l.targetURLHash }
func (l LinkRecord) LinkType() LinkType     { return l.linkType }
func (l LinkRecord) DiscoveredAt() time.Time { return l.discoveredAt }

// ErrorEventRecord is emitted when a page attempt fails; PageID is empty
// when the failure happened before a Page row could be built (e.g. a
// robots-gate rejection).
type ErrorEventRecord struct {
	sessionID  string
	pageID     string
	url        string
	depth      int
	operation  string
	category   string
	severity   string
	message    string
	occurredAt time.Time
}

func NewErrorEventRecord(
	sessionID, pageID, url string,
	depth int,
	operation, category, severity, message string,
) ErrorEventRecord {
	return ErrorEventRecord{
		sessionID:  sessionID,
		pageID:     pageID,
		url:        url,
		depth:      depth,
		operation:  operation,
		category:   category,
		severity:   severity,
		message:    message,
		occurredAt: time.Now(),
	}
}

func (e ErrorEventRecord) SessionID() string   { return e.sessionID }
func (e ErrorEventRecord) PageID() string      { return e.pageID }
func (e ErrorEventRecord) URL() string         { return e.url }
func (e ErrorEventRecord) Depth() int          { return e.depth }
func (e ErrorEventRecord) Operation() string   { return e.operation }
func (e ErrorEventRecord) Category() string    { return e.category }
func (e ErrorEventRecord) Severity() string    { return e.severity }
func (e ErrorEventRecord) Message() string     { return e.message }
func (e ErrorEventRecord) OccurredAt() time.Time { return e.occurredAt }

// SessionStats is the terminal, derived summary exposed for reporting
// collaborators (not part of the core's own control flow).
type SessionStats struct {
	TotalURLs    int
	PagesCrawled int
	PagesFailed  int
	PendingURLs  int
	TotalWords   int
	TotalLinks   int
	TotalErrors  int
}

func marshalTimings(timings PageTimings) (string, error) {
	data, err := json.Marshal(timings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
