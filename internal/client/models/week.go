// Package models defines the week record and the types derived from it.
package models

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// UnpersistedAt marks timestamps of a week that has never been stored.
var UnpersistedAt = time.Unix(0, 0).UTC()

// Target is the weekly goal. A zero Value means no target has been set.
type Target struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// DailyLogEntry is a single day's measurement. Date is YYYY-MM-DD.
type DailyLogEntry struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Memo  string  `json:"memo,omitempty"`
}

// WeekRecord is the unit of persistence: one owner's data for one ISO week.
// In memory the timestamps are always concrete.
type WeekRecord struct {
	IsoYear   int             `json:"isoYear"`
	IsoWeek   int             `json:"isoWeek"`
	Target    Target          `json:"target"`
	DailyLogs []DailyLogEntry `json:"dailyLogs"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WeekView is a WeekRecord with display fields derived from the calendar.
type WeekView struct {
	WeekRecord
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// CacheEntry is what the cache keeps per week key.
type CacheEntry struct {
	Key      string     `json:"key"`
	Data     WeekRecord `json:"data"`
	CachedAt time.Time  `json:"cachedAt"`
}

// WeekKey returns the canonical key of a week, e.g. "2026-W07".
func WeekKey(isoYear, isoWeek int) string {
	return fmt.Sprintf("%d-W%02d", isoYear, isoWeek)
}

var weekKeyPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ParseWeekKey is the inverse of WeekKey. It accepts exactly the
// "YYYY-Www" form.
func ParseWeekKey(key string) (int, int, error) {
	m := weekKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed week key %q", key)
	}
	y, _ := strconv.Atoi(m[1])
	w, _ := strconv.Atoi(m[2])
	return y, w, nil
}

// NewUnpersisted returns the empty record reported for a week that exists
// neither in the cache nor in the remote store.
func NewUnpersisted(isoYear, isoWeek int) WeekRecord {
	return WeekRecord{
		IsoYear:   isoYear,
		IsoWeek:   isoWeek,
		DailyLogs: []DailyLogEntry{},
		CreatedAt: UnpersistedAt,
		UpdatedAt: UnpersistedAt,
	}
}

func (r WeekRecord) Key() string {
	return WeekKey(r.IsoYear, r.IsoWeek)
}

// IsUnpersisted reports whether r carries the never-stored sentinel timestamps.
func (r WeekRecord) IsUnpersisted() bool {
	return r.UpdatedAt.Equal(UnpersistedAt)
}

// Clone returns a deep copy of r.
func (r WeekRecord) Clone() WeekRecord {
	out := r
	out.DailyLogs = slices.Clone(r.DailyLogs)
	if out.DailyLogs == nil {
		out.DailyLogs = []DailyLogEntry{}
	}
	return out
}

// UpsertDailyLog replaces the entry with the same date or appends a new one.
func (r *WeekRecord) UpsertDailyLog(entry DailyLogEntry) {
	for i := range r.DailyLogs {
		if r.DailyLogs[i].Date == entry.Date {
			r.DailyLogs[i] = entry
			return
		}
	}
	r.DailyLogs = append(r.DailyLogs, entry)
}

// SameContent reports whether r and other hold the same target and the same
// set of daily logs. Timestamps and log order are ignored.
func (r WeekRecord) SameContent(other WeekRecord) bool {
	if r.Target != other.Target {
		return false
	}
	if len(r.DailyLogs) != len(other.DailyLogs) {
		return false
	}
	a, b := sortedLogs(r.DailyLogs), sortedLogs(other.DailyLogs)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Total sums the values of all daily logs.
func (r WeekRecord) Total() float64 {
	var sum float64
	for _, l := range r.DailyLogs {
		sum += l.Value
	}
	return sum
}

func sortedLogs(logs []DailyLogEntry) []DailyLogEntry {
	out := slices.Clone(logs)
	slices.SortStableFunc(out, func(x, y DailyLogEntry) int {
		return strings.Compare(x.Date, y.Date)
	})
	return out
}
