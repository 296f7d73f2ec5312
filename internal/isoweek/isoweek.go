// Package isoweek is the calendar helper for ISO-8601 weeks: which week a
// date falls into, where a week starts and ends, how many weeks a year has.
package isoweek

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/common"
)

// DateLayout is the calendar date format used throughout weeklog.
const DateLayout = "2006-01-02"

// Info describes the ISO week a date belongs to.
type Info struct {
	IsoYear   int
	IsoWeek   int
	StartDate string // Monday
	EndDate   string // Sunday
}

// WeekInfo returns the ISO week containing date.
func WeekInfo(date time.Time) Info {
	y, w := date.ISOWeek()
	start := StartOf(y, w)
	return Info{
		IsoYear:   y,
		IsoWeek:   w,
		StartDate: start.Format(DateLayout),
		EndDate:   start.AddDate(0, 0, 6).Format(DateLayout),
	}
}

// StartOf returns the Monday (UTC midnight) of the given ISO week.
// Week 1 is the week that contains January 4th.
func StartOf(isoYear, isoWeek int) time.Time {
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (isoWeek-1)*7)
}

// WeeksInYear returns 52 or 53.
func WeeksInYear(isoYear int) int {
	_, w := time.Date(isoYear, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// Valid reports whether isoWeek exists in isoYear.
func Valid(isoYear, isoWeek int) bool {
	return isoYear > 0 && isoWeek >= 1 && isoWeek <= WeeksInYear(isoYear)
}

// Validate is Valid returning common.ErrInvalidWeek.
func Validate(isoYear, isoWeek int) error {
	if !Valid(isoYear, isoWeek) {
		return fmt.Errorf("%w: %d-W%02d", common.ErrInvalidWeek, isoYear, isoWeek)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", common.ErrInvalidDate, s)
	}
	return t, nil
}

// Range returns the Monday and Sunday of the week as YYYY-MM-DD strings.
func Range(isoYear, isoWeek int) (string, string) {
	start := StartOf(isoYear, isoWeek)
	return start.Format(DateLayout), start.AddDate(0, 0, 6).Format(DateLayout)
}
