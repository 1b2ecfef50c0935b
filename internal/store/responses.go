package store

import (
	"database/sql"
	"errors"

	"github.com/goccy/go-json"

	"github.com/jeffersonwarrior/httpbridge/internal/logging"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// ResponseLayer adapts the DB to the cache's second-tier interface.
// Persistence failures degrade gracefully: a broken disk should never fail
// a request that the network already answered.
type ResponseLayer struct {
	db *DB
}

// Responses returns the cache layer view of the store.
func (db *DB) Responses() *ResponseLayer {
	return &ResponseLayer{db: db}
}

// Get loads a persisted response snapshot by fingerprint.
func (l *ResponseLayer) Get(key string) (*model.EnhancedResponse, bool) {
	var payload []byte
	err := l.db.conn.QueryRow(
		"SELECT payload FROM responses WHERE fingerprint = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		logging.GetLogger().WithError(err).Warn("persistent cache read failed")
		return nil, false
	}

	var resp model.EnhancedResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		logging.GetLogger().WithError(err).Warn("persistent cache entry corrupt, dropping")
		l.Delete(key)
		return nil, false
	}
	return &resp, true
}

// Put stores or overwrites a response snapshot.
func (l *ResponseLayer) Put(key string, resp *model.EnhancedResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("failed to encode response for persistence")
		return
	}

	_, err = l.db.conn.Exec(`
		INSERT INTO responses (fingerprint, payload, status_code, url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			status_code = excluded.status_code,
			url = excluded.url,
			stored_at = CURRENT_TIMESTAMP
	`, key, payload, resp.StatusCode, resp.URL)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("persistent cache write failed")
	}
}

// Delete removes a persisted snapshot.
func (l *ResponseLayer) Delete(key string) {
	if _, err := l.db.conn.Exec("DELETE FROM responses WHERE fingerprint = ?", key); err != nil {
		logging.GetLogger().WithError(err).Warn("persistent cache delete failed")
	}
}
