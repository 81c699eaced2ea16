package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"menuflow-backend/internal/extract"
	"menuflow-backend/internal/shared/telemetry"
)

// PGStore implements Store on the extraction_cache table.
type PGStore struct {
	DB *sql.DB
}

// Get implements Store with lazy expiry: a row read past expires_at is
// deleted and reported as a miss.
func (s *PGStore) Get(ctx context.Context, key string) (*extract.Result, error) {
	const query = `SELECT value, expires_at FROM extraction_cache WHERE key = $1`

	var value string
	var expiresAt time.Time
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(expiresAt) {
		if _, err := s.DB.ExecContext(ctx, `DELETE FROM extraction_cache WHERE key = $1`, key); err != nil {
			telemetry.Error("cache.expire.delete", map[string]any{"key": key, "err": err.Error()})
		}
		return nil, nil
	}

	var result extract.Result
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		// Corrupt rows are a miss, never an extraction failure.
		telemetry.Error("cache.value.corrupt", map[string]any{"key": key, "err": err.Error()})
		return nil, nil
	}
	return &result, nil
}

// Set implements Store as an upsert with expiry now+ttl.
func (s *PGStore) Set(ctx context.Context, key string, result *extract.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	value, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO extraction_cache (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	_, err = s.DB.ExecContext(ctx, query, key, string(value), time.Now().Add(ttl))
	return err
}

var _ Store = (*PGStore)(nil)
