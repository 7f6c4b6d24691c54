package engine

import (
	"fmt"
	"time"

	"github.com/crawlcore/crawlcore/internal/storage"
	"github.com/crawlcore/crawlcore/pkg/hashutil"
)

// startSession creates a new, running SessionRecord and returns its ID.
func (e *Engine) startSession(name string) (string, error) {
	id, err := hashutil.HashBytes([]byte(fmt.Sprintf("%s|%d", name, time.Now().UnixNano())), hashutil.HashAlgoBLAKE3)
	if err != nil {
		return "", err
	}

	session := storage.NewSessionRecord(id, name, e.configSnapshot()).
		WithState(storage.SessionRunning).
		WithStartedAt(time.Now())

	if err := e.store.CreateSession(session); err != nil {
		return "", err
	}
	return id, nil
}

// configSnapshot renders the handful of settings worth keeping alongside
// a session row for later debugging; the full Config is reconstructible
// from whatever configuration source produced it, so this is a summary,
// not a serialization of Config itself.
func (e *Engine) configSnapshot() string {
	return fmt.Sprintf(
		"seeds=%d maxDepth=%d maxPages=%d concurrency=%d dryRun=%v",
		len(e.cfg.SeedURLs()), e.cfg.MaxDepth(), e.cfg.MaxPages(), e.cfg.ConcurrentWorkers(), e.cfg.DryRun(),
	)
}

// finishSession marks the session terminal, records the final crawl
// stats, and returns the session's CrawlResult summary.
func (e *Engine) finishSession(sessionID string, start time.Time) (CrawlResult, error) {
	stats, err := e.store.GetSessionStats(sessionID)
	if err != nil {
		return CrawlResult{}, err
	}
	duration := time.Since(start)

	session, err := e.store.GetSession(sessionID)
	if err != nil {
		return CrawlResult{}, err
	}
	if session == nil {
		return CrawlResult{}, fmt.Errorf("session %s vanished before completion", sessionID)
	}

	updated := session.
		WithState(storage.SessionCompleted).
		WithEndedAt(time.Now()).
		WithCounters(stats.PagesCrawled, stats.PagesFailed, stats.TotalWords)
	if err := e.store.UpdateSession(updated); err != nil {
		return CrawlResult{}, err
	}

	if e.finalizer != nil {
		e.finalizer.RecordFinalCrawlStats(stats.PagesCrawled, stats.TotalErrors, 0, duration)
	}

	return CrawlResult{
		SessionID:    sessionID,
		PagesCrawled: stats.PagesCrawled,
		PagesFailed:  stats.PagesFailed,
		TotalWords:   stats.TotalWords,
		TotalLinks:   stats.TotalLinks,
		TotalErrors:  stats.TotalErrors,
		Duration:     duration,
	}, nil
}
