// Package pgstore keeps weeks in a PostgreSQL table, one row per document
// path, with the daily logs in a JSONB column. Server-assigned timestamps
// come from now() at commit.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/dbx"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"github.com/dmitrijs2005/weeklog/internal/remote/pgstore/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const serializationFailure = "40001"

var gooseUpContext = goose.UpContext

type Store struct {
	db *sql.DB
}

var _ remote.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, checks the connection and applies migrations.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", common.ErrRemoteUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", common.ErrRemoteUnavailable, err)
	}

	s := New(db)
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("failed to migrate weeks: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path remote.DocumentPath) (*codec.StoredDocument, error) {
	doc, err := find(ctx, s.db, path, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.ErrorNotFound
	}
	return doc, nil
}

// RunTransaction locks the row with SELECT ... FOR UPDATE under serializable
// isolation, so two writers racing on a week that does not exist yet cannot
// both succeed; the loser gets common.ErrConcurrentModification.
func (s *Store) RunTransaction(ctx context.Context, path remote.DocumentPath, fn remote.TxFunc) error {
	var fnErr error

	err := dbx.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx dbx.DBTX) error {
		existing, err := find(ctx, tx, path, true)
		if err != nil {
			return err
		}

		doc, err := fn(ctx, existing)
		if err != nil {
			fnErr = err
			return err
		}
		if doc == nil {
			return nil
		}
		return upsert(ctx, tx, path, *doc)
	})

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case fnErr != nil && errors.Is(err, fnErr):
		return fnErr
	case errors.As(err, &pgErr) && pgErr.Code == serializationFailure:
		return fmt.Errorf("%w: %s", common.ErrConcurrentModification, path)
	case errors.Is(err, common.ErrRemoteUnavailable):
		return err
	default:
		return fmt.Errorf("%w: transaction %s: %w", common.ErrRemoteUnavailable, path, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func find(ctx context.Context, db dbx.DBTX, path remote.DocumentPath, forUpdate bool) (*codec.StoredDocument, error) {
	query := `
		SELECT owner_id, iso_year, iso_week, target_value, target_unit, daily_logs, created_at, updated_at
		FROM weeks WHERE path = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		doc       codec.StoredDocument
		logs      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := db.QueryRowContext(ctx, query, path.String()).Scan(
		&doc.OwnerID, &doc.IsoYear, &doc.IsoWeek, &doc.Target.Value, &doc.Target.Unit, &logs, &createdAt, &updatedAt,
	)
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrRemoteUnavailable, path, err)
	}

	doc.DailyLogs = []models.DailyLogEntry{}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &doc.DailyLogs); err != nil {
			return nil, fmt.Errorf("%w: decode daily logs of %s: %w", common.ErrRemoteUnavailable, path, err)
		}
	}
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	return &doc, nil
}

func upsert(ctx context.Context, db dbx.DBTX, path remote.DocumentPath, doc codec.WireDocument) error {
	logs := doc.DailyLogs
	if logs == nil {
		logs = []models.DailyLogEntry{}
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encode daily logs of %s: %w", path, err)
	}

	query := `
		INSERT INTO weeks (path, owner_id, iso_year, iso_week, target_value, target_unit, daily_logs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
		ON CONFLICT (path) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			iso_year = EXCLUDED.iso_year,
			iso_week = EXCLUDED.iso_week,
			target_value = EXCLUDED.target_value,
			target_unit = EXCLUDED.target_unit,
			daily_logs = EXCLUDED.daily_logs,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err = db.ExecContext(ctx, query,
		path.String(), doc.OwnerID, doc.IsoYear, doc.IsoWeek, doc.Target.Value, doc.Target.Unit, string(data),
		nullTime(doc.CreatedAt), nullTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", common.ErrRemoteUnavailable, path, err)
	}
	return nil
}

// nullTime maps assign-on-write to NULL, which COALESCE turns into now().
func nullTime(ts codec.Timestamp) sql.NullTime {
	t, ok := ts.Time()
	return sql.NullTime{Time: t, Valid: ok}
}
