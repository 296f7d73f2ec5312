package services

import (
	"context"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
)

// SaveDayLog loads the week containing date, replaces or appends the entry
// for that date and saves the whole week.
func (g *Gateway) SaveDayLog(ctx context.Context, date string, entry models.DailyLogEntry) error {
	d, err := isoweek.ParseDate(date)
	if err != nil {
		return err
	}
	info := isoweek.WeekInfo(d)

	view, err := g.LoadWeek(ctx, info.IsoYear, info.IsoWeek)
	if err != nil {
		return err
	}

	rec := view.WeekRecord.Clone()
	entry.Date = d.Format(isoweek.DateLayout)
	rec.UpsertDailyLog(entry)

	return g.SaveWeek(ctx, rec, nil)
}

// SaveTarget loads the week, replaces its target value and saves it. An
// empty unit keeps the current one.
func (g *Gateway) SaveTarget(ctx context.Context, isoYear, isoWeek int, value float64, unit string) error {
	view, err := g.LoadWeek(ctx, isoYear, isoWeek)
	if err != nil {
		return err
	}

	rec := view.WeekRecord.Clone()
	rec.Target.Value = value
	if unit != "" {
		rec.Target.Unit = unit
	}

	return g.SaveWeek(ctx, rec, nil)
}
