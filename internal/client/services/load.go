package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/metrics"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"go.opentelemetry.io/otel/attribute"
)

// LoadWeek returns the week with its display fields.
//
// The cache is first bound to the resolved owner, which drops weeks cached
// for anyone else. A fresh cache entry is returned without contacting the
// remote store. On a miss the remote document is read and cached. A week that does not exist,
// and a week that cannot be read because the remote store or the identity
// is unavailable, both come back as the unpersisted record; the only error
// is an invalid week number.
func (g *Gateway) LoadWeek(ctx context.Context, isoYear, isoWeek int) (*models.WeekView, error) {
	if err := isoweek.Validate(isoYear, isoWeek); err != nil {
		return nil, err
	}
	key := models.WeekKey(isoYear, isoWeek)

	ctx, span := g.tracer.Start(ctx, "Gateway.LoadWeek")
	defer span.End()
	span.SetAttributes(attribute.String("weeklog.week", key))

	owner, idErr, cacheErr := g.caller(ctx)

	var cached *models.WeekRecord
	var hit bool
	if cacheErr == nil {
		_ = guard(func() error {
			cached, hit = g.cache.Get(ctx, key)
			return nil
		})
	}
	if hit {
		g.log.Debug(ctx, "week served from cache", "week", key)
		g.metrics.LoadServed(metrics.SourceCache)
		span.SetAttributes(attribute.String("weeklog.source", metrics.SourceCache))
		view := codec.ToView(*cached)
		return &view, nil
	}

	rec, source := g.loadRemote(ctx, owner, idErr, isoYear, isoWeek)
	if source == metrics.SourceRemote && cacheErr == nil {
		_ = guard(func() error {
			g.cache.PutBestEffort(ctx, key, rec)
			return nil
		})
	}
	g.metrics.LoadServed(source)
	span.SetAttributes(attribute.String("weeklog.source", source))

	view := codec.ToView(rec)
	return &view, nil
}

func (g *Gateway) loadRemote(ctx context.Context, owner string, idErr error, isoYear, isoWeek int) (models.WeekRecord, string) {
	key := models.WeekKey(isoYear, isoWeek)
	var rec models.WeekRecord

	err := guard(func() error {
		if idErr != nil {
			return idErr
		}

		started := time.Now()
		doc, err := g.remote.Get(ctx, remote.PathFor(owner, isoYear, isoWeek))
		g.metrics.ObserveRemote("get", started)
		if err != nil {
			return err
		}

		rec = g.codec.FromWire(ctx, *doc)
		rec.IsoYear, rec.IsoWeek = isoYear, isoWeek
		return nil
	})

	switch {
	case err == nil:
		return rec, metrics.SourceRemote
	case errors.Is(err, common.ErrorNotFound):
		g.log.Debug(ctx, "week not stored yet", "week", key)
	default:
		g.log.Warn(ctx, "remote read failed, returning empty week", "week", key, "err", err)
	}
	return models.NewUnpersisted(isoYear, isoWeek), metrics.SourceSentinel
}
