package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeffersonwarrior/httpbridge/internal/logging"
)

// JournalEntry records one executed request for offline inspection.
type JournalEntry struct {
	ID         string
	Method     string
	URL        string
	StatusCode *int
	Error      *string
	CacheHit   bool
	LatencyMs  int64
	CreatedAt  time.Time
}

// RecordRequest appends a journal entry. The entry gets a fresh UUID when
// none is set. Journal failures are logged and swallowed; the journal is
// diagnostic, never authoritative.
func (db *DB) RecordRequest(e *JournalEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := db.conn.Exec(`
		INSERT INTO request_journal (id, method, url, status_code, error, cache_hit, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Method, e.URL, e.StatusCode, e.Error, e.CacheHit, e.LatencyMs)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("request journal write failed")
	}
}

// RecentRequests lists the most recent journal entries, newest first.
func (db *DB) RecentRequests(limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, method, url, status_code, error, cache_hit, latency_ms, created_at
		FROM request_journal
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Method, &e.URL, &e.StatusCode, &e.Error, &e.CacheHit, &e.LatencyMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
