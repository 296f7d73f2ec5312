package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
)

const (
	usageShow   = "show [year week | yyyy-mm-dd | yyyy-Www]"
	usageLog    = "log <yyyy-mm-dd|today> <value> [memo]"
	usageTarget = "target <year> <week> <value> [unit]"
)

// Show prints one week, the current one when no arguments are given.
func (a *App) Show(ctx context.Context, args []string) error {
	year, week, err := a.parseWeekArgs(args)
	if err != nil {
		return err
	}

	view, err := a.gateway.LoadWeek(ctx, year, week)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, renderWeek(view))
	return nil
}

// Log records one day's value.
func (a *App) Log(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError(usageLog)
	}

	date := args[0]
	if date == "today" {
		date = a.now().Format(isoweek.DateLayout)
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usageError(usageLog)
	}
	memo := strings.Join(args[2:], " ")

	if err := a.gateway.SaveDayLog(ctx, date, models.DailyLogEntry{Value: value, Memo: memo}); err != nil {
		return err
	}

	d, _ := isoweek.ParseDate(date)
	info := isoweek.WeekInfo(d)
	fmt.Fprintf(a.out, "Logged %s on %s (%s)\n", formatValue(value), date, models.WeekKey(info.IsoYear, info.IsoWeek))
	return nil
}

// Target sets the weekly goal.
func (a *App) Target(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return usageError(usageTarget)
	}

	year, week, err := parseYearWeek(args[0], args[1])
	if err != nil {
		return usageError(usageTarget)
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil || value < 0 {
		return usageError(usageTarget)
	}
	var unit string
	if len(args) == 4 {
		unit = args[3]
	}

	if err := a.gateway.SaveTarget(ctx, year, week, value, unit); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Target for %s set to %s\n", models.WeekKey(year, week), formatValue(value))
	return nil
}

func (a *App) parseWeekArgs(args []string) (int, int, error) {
	switch len(args) {
	case 0:
		info := isoweek.WeekInfo(a.now())
		return info.IsoYear, info.IsoWeek, nil
	case 1:
		if y, w, err := models.ParseWeekKey(args[0]); err == nil {
			return y, w, nil
		}
		d, err := isoweek.ParseDate(args[0])
		if err != nil {
			return 0, 0, usageError(usageShow)
		}
		info := isoweek.WeekInfo(d)
		return info.IsoYear, info.IsoWeek, nil
	case 2:
		y, w, err := parseYearWeek(args[0], args[1])
		if err != nil {
			return 0, 0, usageError(usageShow)
		}
		return y, w, nil
	default:
		return 0, 0, usageError(usageShow)
	}
}

func parseYearWeek(ys, ws string) (int, int, error) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, err
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, err
	}
	return y, w, nil
}
