package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

// SaveWeek persists rec. See SaveWeekDetailed.
func (g *Gateway) SaveWeek(ctx context.Context, rec models.WeekRecord, expectedUpdatedAt *time.Time) error {
	_, err := g.SaveWeekDetailed(ctx, rec, expectedUpdatedAt)
	return err
}

// SaveWeekDetailed persists rec and reports how.
//
// The remote write happens inside a transaction that first compares the
// stored updatedAt with expectedUpdatedAt (when given) and skips the write
// when the content is unchanged. A conflict is returned as
// common.ErrConcurrentModification and drops the week from the cache. Any
// other remote failure, including a missing identity or a panic, falls back
// to a strict cache write: success there is OutcomeDegraded with a nil
// error; failure there is common.ErrPersistenceFailed.
func (g *Gateway) SaveWeekDetailed(ctx context.Context, rec models.WeekRecord, expectedUpdatedAt *time.Time) (outcome Outcome, err error) {
	if err := isoweek.Validate(rec.IsoYear, rec.IsoWeek); err != nil {
		return OutcomeFailed, err
	}
	key := rec.Key()

	ctx, span := g.tracer.Start(ctx, "Gateway.SaveWeek")
	span.SetAttributes(attribute.String("weeklog.week", key))
	defer func() {
		span.SetAttributes(attribute.String("weeklog.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
		g.metrics.SaveFinished(string(outcome))
	}()

	now := g.now().UTC()
	stamped := rec.Clone()
	stamped.CreatedAt, stamped.UpdatedAt = now, now

	owner, idErr, cacheErr := g.caller(ctx)
	stored, remoteErr := g.saveRemote(ctx, owner, idErr, rec, expectedUpdatedAt)

	switch {
	case remoteErr == nil:
		// a skipped write leaves the remote document as it was, so the
		// cache gets the stored copy rather than a local stamp
		cached := stamped
		if stored != nil {
			cached = *stored
		}
		if cacheErr == nil {
			_ = guard(func() error {
				g.cache.PutBestEffort(ctx, key, cached)
				return nil
			})
		}
		if stored != nil {
			g.log.Debug(ctx, "week unchanged, remote write skipped", "week", key)
			return OutcomeSkipped, nil
		}
		g.log.Debug(ctx, "week saved", "week", key)
		return OutcomeSuccess, nil

	case errors.Is(remoteErr, common.ErrConcurrentModification):
		_ = guard(func() error {
			g.cache.Delete(ctx, key)
			return nil
		})
		g.log.Warn(ctx, "save rejected, week changed elsewhere", "week", key, "err", remoteErr)
		return OutcomeConflict, remoteErr
	}

	if cacheErr == nil {
		cacheErr = guard(func() error {
			return g.cache.Put(ctx, key, stamped)
		})
	}
	if cacheErr != nil {
		g.log.Error(ctx, "save failed, week persisted nowhere", "week", key, "remote_err", remoteErr, "cache_err", cacheErr)
		return OutcomeFailed, errors.Join(fmt.Errorf("%w: %s", common.ErrPersistenceFailed, key), remoteErr, cacheErr)
	}

	g.log.Warn(ctx, "DEGRADED: week saved to local cache only, remote store not updated", "week", key, "err", remoteErr)
	return OutcomeDegraded, nil
}

// saveRemote runs the read-modify-write transaction. When the stored
// content already matched rec nothing is written and the stored week is
// returned.
func (g *Gateway) saveRemote(ctx context.Context, owner string, idErr error, rec models.WeekRecord, expectedUpdatedAt *time.Time) (unchanged *models.WeekRecord, err error) {
	err = guard(func() error {
		if idErr != nil {
			return idErr
		}
		path := remote.PathFor(owner, rec.IsoYear, rec.IsoWeek)

		started := time.Now()
		defer g.metrics.ObserveRemote("transaction", started)

		return g.remote.RunTransaction(ctx, path, func(ctx context.Context, existing *codec.StoredDocument) (*codec.WireDocument, error) {
			unchanged = nil

			if existing == nil {
				doc := g.codec.ToWire(rec, owner, true)
				return &doc, nil
			}

			current := g.codec.FromWire(ctx, *existing)
			if expectedUpdatedAt != nil && !withinTolerance(current.UpdatedAt, *expectedUpdatedAt, g.tolerance) {
				return nil, fmt.Errorf("%w: %s stored at %s, caller saw %s", common.ErrConcurrentModification,
					path, current.UpdatedAt.Format(time.RFC3339Nano), expectedUpdatedAt.UTC().Format(time.RFC3339Nano))
			}

			if current.SameContent(rec) {
				current.IsoYear, current.IsoWeek = rec.IsoYear, rec.IsoWeek
				unchanged = &current
				return nil, nil
			}

			next := rec.Clone()
			next.CreatedAt = current.CreatedAt
			doc := g.codec.ToWire(next, owner, false)
			return &doc, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return unchanged, nil
}

func withinTolerance(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
