package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/crawlcore/crawlcore/pkg/failure"
	"github.com/crawlcore/crawlcore/pkg/retry"
)

// Store is the abstract persistence port: any backing store may implement
// it. SQLiteStore is the one adapter this repo ships.
type Store interface {
	Initialize() error
	Close() error

	CreateSession(session SessionRecord) error
	UpdateSession(session SessionRecord) error
	GetSession(id string) (*SessionRecord, error)

	StorePage(page PageRecord) error
	StoreWordFrequencies(sessionID, pageID string, frequencies map[string]int) error
	StoreLinks(sessionID string, links []LinkRecord) error
	StoreErrorEvent(event ErrorEventRecord) error

	EnqueueURL(record QueuedURLRecord) error
	MarkQueuedURLStatus(sessionID, urlHash string, status QueuedURLStatus, errMessage string) error
	LoadPendingQueuedURLs(sessionID string) ([]QueuedURLRecord, error)
	RecoverInterruptedURLs(sessionID string, stuckFor time.Duration) (int, error)
	CleanupOldQueueEntries(sessionID string, olderThan time.Duration) (int, error)

	GetSessionStats(sessionID string) (SessionStats, error)
}

// SQLiteStore implements Store over database/sql + go-sqlite3, WAL mode,
// single writer. Grounded in erndmrc-spider2's internal/storage/database.go
// (same connection-pool shape, same ON CONFLICT upsert style) adapted to
// the Session/Page/WordFrequency/Link/ErrorEvent schema instead of
// spider2's url/fetch/html_features schema.
type SQLiteStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	retryParam retry.RetryParam
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (but does not initialize) a SQLite-backed store at
// path. Call Initialize to create the schema.
func NewSQLiteStore(path string, retryParam retry.RetryParam) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseConnectionFailed, Retryable: false}
	}
	if err := db.Ping(); err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseConnectionFailed, Retryable: true}
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &SQLiteStore{db: db, retryParam: retryParam}, nil
}

func (s *SQLiteStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execRetrying runs fn, retrying on SQLITE_BUSY per the configured
// RetryParam. Every other error is returned immediately.
func (s *SQLiteStore) execRetrying(fn func() (sql.Result, error)) (sql.Result, error) {
	result := retry.Retry(s.retryParam, func() (sql.Result, failure.ClassifiedError) {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		return nil, &StorageError{
			Message:   err.Error(),
			Cause:     ErrCauseQueryFailed,
			Retryable: isBusyError(err),
		}
	})
	if result.Err() != nil {
		return nil, result.Err()
	}
	return result.Value(), nil
}

func isBusyError(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked)
}

// --- Session lifecycle ---

func (s *SQLiteStore) CreateSession(session SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, name, config_snapshot, state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID(), session.Name(), session.ConfigSnapshot(), session.State(), session.CreatedAt())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) UpdateSession(session SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE sessions SET
			state = ?, started_at = ?, ended_at = ?,
			pages_crawled = ?, pages_failed = ?, total_words = ?
		WHERE id = ?
	`, session.State(), session.StartedAt(), session.EndedAt(),
		session.PagesCrawled(), session.PagesFailed(), session.TotalWords(), session.ID())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec SessionRecord
	var startedAt, endedAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, name, config_snapshot, state, created_at, started_at, ended_at,
			pages_crawled, pages_failed, total_words
		FROM sessions WHERE id = ?
	`, id).Scan(
		&rec.id, &rec.name, &rec.configSnapshot, &rec.state, &rec.createdAt, &startedAt, &endedAt,
		&rec.pagesCrawled, &rec.pagesFailed, &rec.totalWords,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	if startedAt.Valid {
		rec.startedAt = &startedAt.Time
	}
	if endedAt.Valid {
		rec.endedAt = &endedAt.Time
	}
	return &rec, nil
}

// --- Page / word frequency / link / error event ---

func (s *SQLiteStore) StorePage(page PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timingsJSON, err := marshalTimings(page.Timings())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseHashComputationFailed, Retryable: false}
	}

	_, err = s.db.Exec(`
		INSERT INTO pages (
			id, session_id, url, url_hash, parent_url, depth, http_status, content_type,
			final_url, title, total_words, unique_words, error_message,
			raw_size_bytes, extracted_size_bytes, connection_reused, timings_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			http_status = excluded.http_status,
			content_type = excluded.content_type,
			final_url = excluded.final_url,
			title = excluded.title,
			total_words = excluded.total_words,
			unique_words = excluded.unique_words,
			error_message = excluded.error_message,
			raw_size_bytes = excluded.raw_size_bytes,
			extracted_size_bytes = excluded.extracted_size_bytes,
			connection_reused = excluded.connection_reused,
			timings_json = excluded.timings_json
	`, page.ID(), page.SessionID(), page.URL(), page.URLHash(), page.ParentURL(), page.Depth(),
		page.HTTPStatus(), page.ContentType(), page.FinalURL(), page.Title(),
		page.TotalWords(), page.UniqueWords(), page.ErrorMessage(),
		page.RawSizeBytes(), page.ExtractedSizeBytes(), page.ConnectionReused(),
		timingsJSON, page.CreatedAt())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) StoreWordFrequencies(sessionID, pageID string, frequencies map[string]int) error {
	if len(frequencies) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO word_frequencies (page_id, session_id, word, frequency, word_length)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	defer stmt.Close()

	for word, frequency := range frequencies {
		record := NewWordFrequencyRecord(pageID, sessionID, word, frequency)
		if _, err := stmt.Exec(record.PageID(), record.SessionID(), record.Word(), record.Frequency(), record.WordLength()); err != nil {
			return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) StoreLinks(sessionID string, links []LinkRecord) error {
	if len(links) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO links (session_id, source_page_id, target_url, target_url_hash, link_type, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.Exec(sessionID, link.SourcePageID(), link.TargetURL(), link.TargetURLHash(), link.LinkType(), link.DiscoveredAt()); err != nil {
			return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) StoreErrorEvent(event ErrorEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pageID any
	if event.PageID() != "" {
		pageID = event.PageID()
	}

	_, err := s.db.Exec(`
		INSERT INTO error_events (session_id, page_id, url, depth, operation, category, severity, message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.SessionID(), pageID, event.URL(), event.Depth(), event.Operation(),
		event.Category(), event.Severity(), event.Message(), event.OccurredAt())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

// --- Queue persistence (optional, per config.EnablePersistentQueue) ---

func (s *SQLiteStore) EnqueueURL(record QueuedURLRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO queued_urls (
			session_id, url_hash, url, depth, priority, parent_url,
			discovered_at, scheduled_at, attempts, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, url_hash) DO UPDATE SET
			scheduled_at = excluded.scheduled_at,
			attempts = excluded.attempts,
			status = excluded.status
	`, record.SessionID(), record.URLHash(), record.URL(), record.Depth(), record.Priority(),
		record.ParentURL(), record.DiscoveredAt(), record.ScheduledAt(), record.Attempts(), record.Status())
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

func (s *SQLiteStore) MarkQueuedURLStatus(sessionID, urlHash string, status QueuedURLStatus, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE queued_urls SET status = ?, error_message = ?, last_attempt_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND url_hash = ?
	`, status, errMessage, sessionID, urlHash)
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	return nil
}

// LoadPendingQueuedURLs is called once at session startup to re-populate
// the in-memory Frontier from a prior run.
func (s *SQLiteStore) LoadPendingQueuedURLs(sessionID string) ([]QueuedURLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT session_id, url_hash, url, depth, priority, parent_url,
			discovered_at, scheduled_at, attempts, last_attempt_at, status, error_message
		FROM queued_urls
		WHERE session_id = ? AND status = ?
		ORDER BY priority DESC, depth ASC, discovered_at ASC
	`, sessionID, QueuedPending)
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	defer rows.Close()

	return scanQueuedURLRows(rows)
}

// RecoverInterruptedURLs resets rows stuck in `processing` for longer than
// stuckFor back to `pending`, the crash-recovery step run once at session
// resume. Returns the number of rows reset.
func (s *SQLiteStore) RecoverInterruptedURLs(sessionID string, stuckFor time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-stuckFor)
	result, err := s.db.Exec(`
		UPDATE queued_urls SET status = ?
		WHERE session_id = ? AND status = ? AND (last_attempt_at IS NULL OR last_attempt_at < ?)
	`, QueuedPending, sessionID, QueuedProcessing, cutoff)
	if err != nil {
		return 0, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// CleanupOldQueueEntries deletes terminal (completed/failed) entries older
// than olderThan.
func (s *SQLiteStore) CleanupOldQueueEntries(sessionID string, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`
		DELETE FROM queued_urls
		WHERE session_id = ? AND status IN (?, ?) AND scheduled_at < ?
	`, sessionID, QueuedCompleted, QueuedFailed, cutoff)
	if err != nil {
		return 0, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: isBusyError(err)}
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// --- Analytics (used by the external reporting collaborator) ---

func (s *SQLiteStore) GetSessionStats(sessionID string) (SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats SessionStats
	row := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM queued_urls WHERE session_id = ?),
			(SELECT COUNT(*) FROM queued_urls WHERE session_id = ? AND status = ?),
			(SELECT COUNT(*) FROM pages WHERE session_id = ?),
			(SELECT COUNT(*) FROM pages WHERE session_id = ? AND error_message != ''),
			(SELECT COALESCE(SUM(total_words), 0) FROM pages WHERE session_id = ?),
			(SELECT COUNT(*) FROM links WHERE session_id = ?),
			(SELECT COUNT(*) FROM error_events WHERE session_id = ?)
	`, sessionID, sessionID, QueuedPending, sessionID, sessionID, sessionID, sessionID, sessionID)

	if err := row.Scan(
		&stats.TotalURLs, &stats.PendingURLs, &stats.PagesCrawled, &stats.PagesFailed,
		&stats.TotalWords, &stats.TotalLinks, &stats.TotalErrors,
	); err != nil {
		return SessionStats{}, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
	}
	return stats, nil
}

func scanQueuedURLRows(rows *sql.Rows) ([]QueuedURLRecord, error) {
	var records []QueuedURLRecord
	for rows.Next() {
		var record QueuedURLRecord
		var lastAttemptAt sql.NullTime
		var parentURL, errorMessage sql.NullString
		if err := rows.Scan(
			&record.sessionID, &record.urlHash, &record.url, &record.depth, &record.priority,
			&parentURL, &record.discoveredAt, &record.scheduledAt, &record.attempts,
			&lastAttemptAt, &record.status, &errorMessage,
		); err != nil {
			return nil, &StorageError{Message: err.Error(), Cause: ErrCauseQueryFailed, Retryable: false}
		}
		record.parentURL = parentURL.String
		record.errorMessage = errorMessage.String
		if lastAttemptAt.Valid {
			record.lastAttemptAt = &lastAttemptAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
