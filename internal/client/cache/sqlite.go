package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/dbx"
	"github.com/dmitrijs2005/weeklog/internal/logging"
)

type SQLiteStore struct {
	db  dbx.DBTX
	ttl time.Duration
	log logging.Logger
	now func() time.Time
}

type Option func(*SQLiteStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *SQLiteStore) { s.ttl = ttl }
}

func WithLogger(l logging.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

func NewSQLiteStore(db dbx.DBTX, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, ttl: DefaultTTL, log: logging.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.WeekRecord, bool) {
	var data []byte
	var cachedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT data, cached_at FROM week_cache WHERE key = ?`, key).Scan(&data, &cachedAt)
	if dbx.IsNoRows(err) {
		return nil, false
	}
	if err != nil {
		s.log.Warn(ctx, "cache read failed", "week", key, "err", err)
		return nil, false
	}

	if s.now().Sub(time.Unix(0, cachedAt)) >= s.ttl {
		s.log.Debug(ctx, "cache entry expired", "week", key)
		return nil, false
	}

	var rec models.WeekRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn(ctx, "cache entry undecodable", "week", key, "err", err)
		return nil, false
	}
	return &rec, true
}

func (s *SQLiteStore) Put(ctx context.Context, key string, rec models.WeekRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode week_cache[%s]: %w", common.ErrCacheUnavailable, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO week_cache (key, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at
	`, key, data, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("%w: put week_cache[%s]: %w", common.ErrCacheUnavailable, key, err)
	}
	return nil
}

func (s *SQLiteStore) PutBestEffort(ctx context.Context, key string, rec models.WeekRecord) {
	if err := s.Put(ctx, key, rec); err != nil {
		s.log.Warn(ctx, "cache refresh skipped", "week", key, "err", err)
	}
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM week_cache WHERE key = ?`, key); err != nil {
		s.log.Warn(ctx, "cache invalidation failed", "week", key, "err", err)
	}
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM week_cache`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cache_owner`)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear week_cache: %w", common.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) BindOwner(ctx context.Context, owner string) (cleared bool, err error) {
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cleared = false

		var recorded string
		err := tx.QueryRowContext(ctx, `SELECT owner FROM cache_owner WHERE id = 1`).Scan(&recorded)
		switch {
		case dbx.IsNoRows(err):
		case err != nil:
			return err
		case recorded == owner:
			return nil
		default:
			if _, err := tx.ExecContext(ctx, `DELETE FROM week_cache`); err != nil {
				return err
			}
			cleared = true
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cache_owner (id, owner) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET owner = excluded.owner
		`, owner)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: bind cache owner: %w", common.ErrCacheUnavailable, err)
	}
	return cleared, nil
}

// inTx runs fn in a transaction when the handle can start one, and directly
// on the handle otherwise (e.g. when it already is a transaction).
func (s *SQLiteStore) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if b, ok := s.db.(dbx.Beginner); ok {
		return dbx.WithTx(ctx, b, nil, fn)
	}
	return fn(ctx, s.db)
}

func (s *SQLiteStore) ListAll(ctx context.Context) []models.WeekRecord {
	out := []models.WeekRecord{}

	rows, err := s.db.QueryContext(ctx, `SELECT key, data FROM week_cache ORDER BY key`)
	if err != nil {
		s.log.Warn(ctx, "cache listing failed", "err", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			s.log.Warn(ctx, "cache listing failed", "err", err)
			return []models.WeekRecord{}
		}
		var rec models.WeekRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			s.log.Warn(ctx, "cache entry undecodable", "week", key, "err", err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn(ctx, "cache listing failed", "err", err)
		return []models.WeekRecord{}
	}
	return out
}
