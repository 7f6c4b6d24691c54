package storage

// schema is the relational shape of the persistence port: one row per
// Session, QueuedURL (when persistent queueing is enabled), Page,
// WordFrequency, Link, and ErrorEvent, per the data model's cascade-on-
// delete ownership (Session owns everything transitively).
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	config_snapshot  TEXT NOT NULL DEFAULT '{}',
	state            TEXT NOT NULL DEFAULT 'pending',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at       DATETIME,
	ended_at         DATETIME,
	pages_crawled    INTEGER NOT NULL DEFAULT 0,
	pages_failed     INTEGER NOT NULL DEFAULT 0,
	total_words      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS queued_urls (
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	url_hash        TEXT NOT NULL,
	url             TEXT NOT NULL,
	depth           INTEGER NOT NULL DEFAULT 0,
	priority        INTEGER NOT NULL DEFAULT 0,
	parent_url      TEXT,
	discovered_at   DATETIME NOT NULL,
	scheduled_at    DATETIME NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	last_attempt_at DATETIME,
	status          TEXT NOT NULL DEFAULT 'pending',
	error_message   TEXT,
	PRIMARY KEY (session_id, url_hash)
);

CREATE INDEX IF NOT EXISTS idx_queued_urls_status
	ON queued_urls(session_id, status, priority DESC, depth ASC, discovered_at ASC);
CREATE INDEX IF NOT EXISTS idx_queued_urls_processing
	ON queued_urls(session_id, status, last_attempt_at);

CREATE TABLE IF NOT EXISTS pages (
	id                   TEXT PRIMARY KEY,
	session_id           TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	url                  TEXT NOT NULL,
	url_hash             TEXT NOT NULL,
	parent_url           TEXT,
	depth                INTEGER NOT NULL DEFAULT 0,
	http_status          INTEGER NOT NULL DEFAULT 0,
	content_type         TEXT,
	final_url            TEXT,
	title                TEXT,
	total_words          INTEGER NOT NULL DEFAULT 0,
	unique_words         INTEGER NOT NULL DEFAULT 0,
	error_message        TEXT,
	raw_size_bytes       INTEGER NOT NULL DEFAULT 0,
	extracted_size_bytes INTEGER NOT NULL DEFAULT 0,
	connection_reused    BOOLEAN NOT NULL DEFAULT 0,
	timings_json         TEXT NOT NULL DEFAULT '{}',
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
CREATE INDEX IF NOT EXISTS idx_pages_session_status ON pages(session_id, http_status);
CREATE INDEX IF NOT EXISTS idx_pages_url_hash ON pages(session_id, url_hash);

CREATE TABLE IF NOT EXISTS word_frequencies (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id     TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	word        TEXT NOT NULL,
	frequency   INTEGER NOT NULL,
	word_length INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_word_frequencies_page ON word_frequencies(page_id);
CREATE INDEX IF NOT EXISTS idx_word_frequencies_session_word ON word_frequencies(session_id, word);

CREATE TABLE IF NOT EXISTS links (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	source_page_id  TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	target_url      TEXT NOT NULL,
	target_url_hash TEXT NOT NULL,
	link_type       TEXT NOT NULL DEFAULT 'external',
	discovered_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_links_session ON links(session_id);
CREATE INDEX IF NOT EXISTS idx_links_source_page ON links(source_page_id);

CREATE TABLE IF NOT EXISTS error_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	page_id     TEXT REFERENCES pages(id) ON DELETE SET NULL,
	url         TEXT NOT NULL,
	depth       INTEGER NOT NULL DEFAULT 0,
	operation   TEXT NOT NULL,
	category    TEXT NOT NULL,
	severity    TEXT NOT NULL,
	message     TEXT NOT NULL,
	occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_error_events_session ON error_events(session_id);
CREATE INDEX IF NOT EXISTS idx_error_events_category ON error_events(session_id, category);
`
