// Package snapshot exports the locally known weeks to a JSON document and
// replays such a document back through the storage gateway. A snapshot may
// be sealed with a passphrase.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/cryptox"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
	"github.com/dmitrijs2005/weeklog/internal/logging"
)

// FormatVersion is written into every snapshot and checked on restore.
const FormatVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrPassphraseRequired = errors.New("snapshot is sealed, passphrase required")
)

type Document struct {
	Version    int                 `json:"version"`
	ExportedAt time.Time           `json:"exportedAt"`
	Weeks      []models.WeekRecord `json:"weeks"`
}

// envelope is the on-disk form: either a plain document or a sealed one.
type envelope struct {
	Version    int                 `json:"version"`
	ExportedAt time.Time           `json:"exportedAt"`
	Weeks      []models.WeekRecord `json:"weeks"`
	Sealed     *cryptox.Sealed     `json:"sealed,omitempty"`
}

// PassphraseFunc is asked for the passphrase only when a sealed snapshot is
// being restored.
type PassphraseFunc func() ([]byte, error)

// WeekLister is satisfied by the storage gateway.
type WeekLister interface {
	ListCachedWeeks(ctx context.Context) []models.WeekRecord
}

// WeekSaver is satisfied by the storage gateway.
type WeekSaver interface {
	SaveWeek(ctx context.Context, rec models.WeekRecord, expectedUpdatedAt *time.Time) error
}

// Export writes every cached week to w and returns how many were written.
// A non-empty passphrase seals the week list.
func Export(ctx context.Context, src WeekLister, w io.Writer, now time.Time, passphrase []byte) (int, error) {
	weeks := src.ListCachedWeeks(ctx)
	if weeks == nil {
		weeks = []models.WeekRecord{}
	}

	env := envelope{Version: FormatVersion, ExportedAt: now.UTC(), Weeks: weeks}
	if len(passphrase) > 0 {
		plain, err := json.Marshal(weeks)
		if err != nil {
			return 0, fmt.Errorf("encode snapshot: %w", err)
		}
		sealed, err := cryptox.Seal(plain, passphrase)
		if err != nil {
			return 0, fmt.Errorf("seal snapshot: %w", err)
		}
		env.Weeks, env.Sealed = nil, sealed
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(weeks), nil
}

// Decode reads a snapshot from r, opening it with passphrase when sealed.
func Decode(r io.Reader, passphrase PassphraseFunc) (Document, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Document{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != FormatVersion {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	doc := Document{Version: env.Version, ExportedAt: env.ExportedAt, Weeks: env.Weeks}
	if env.Sealed == nil {
		return doc, nil
	}

	if passphrase == nil {
		return Document{}, ErrPassphraseRequired
	}
	pass, err := passphrase()
	if err != nil {
		return Document{}, fmt.Errorf("read passphrase: %w", err)
	}
	plain, err := env.Sealed.Open(pass)
	if err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(plain, &doc.Weeks); err != nil {
		return Document{}, fmt.Errorf("decode sealed weeks: %w", err)
	}
	return doc, nil
}

// Result summarises a restore.
type Result struct {
	Restored int
	Skipped  int
	Failed   int
}

// Restore reads a snapshot from r and saves each week through dst without
// an expected timestamp. Weeks with an invalid ISO week are skipped. A
// failing week does not stop the others; all failures are returned joined.
func Restore(ctx context.Context, dst WeekSaver, r io.Reader, passphrase PassphraseFunc, log logging.Logger) (Result, error) {
	if log == nil {
		log = logging.NewNop()
	}

	doc, err := Decode(r, passphrase)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var errs []error
	for _, rec := range doc.Weeks {
		if !isoweek.Valid(rec.IsoYear, rec.IsoWeek) {
			log.Warn(ctx, "snapshot week skipped", "week", rec.Key())
			res.Skipped++
			continue
		}
		if rec.DailyLogs == nil {
			rec.DailyLogs = []models.DailyLogEntry{}
		}
		if err := dst.SaveWeek(ctx, rec, nil); err != nil {
			log.Error(ctx, "snapshot week not restored", "week", rec.Key(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", rec.Key(), err))
			res.Failed++
			continue
		}
		res.Restored++
	}
	return res, errors.Join(errs...)
}
