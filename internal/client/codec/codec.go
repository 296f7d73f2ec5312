// Package codec converts week records to and from the representation kept by
// the remote document store.
//
// On the way out, timestamps the store must assign are expressed with the
// AssignOnWrite variant of Timestamp. On the way in, stored timestamps may
// arrive in whatever shape the driver decoded (native time, BSON date,
// protobuf timestamp, a seconds-carrying object); ResolveTimestamp turns all
// of them into time.Time.
package codec

import (
	"context"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/isoweek"
	"github.com/dmitrijs2005/weeklog/internal/logging"
)

// WireDocument is a week as handed to the remote store for writing.
type WireDocument struct {
	OwnerID   string
	IsoYear   int
	IsoWeek   int
	Target    models.Target
	DailyLogs []models.DailyLogEntry
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// StoredDocument is a week as read back from the remote store. CreatedAt and
// UpdatedAt hold the driver's decoded value untouched.
type StoredDocument struct {
	OwnerID   string
	IsoYear   int
	IsoWeek   int
	Target    models.Target
	DailyLogs []models.DailyLogEntry
	CreatedAt any
	UpdatedAt any
}

// Codec performs the conversions. The zero value is not usable; call New.
type Codec struct {
	log logging.Logger
	now func() time.Time
}

func New(log logging.Logger) *Codec {
	if log == nil {
		log = logging.NewNop()
	}
	return &Codec{log: log, now: time.Now}
}

// ToWire builds the document to write for rec. For a new document both
// timestamps are assigned by the store; otherwise createdAt is carried over
// from rec and only updatedAt is assigned.
func (c *Codec) ToWire(rec models.WeekRecord, ownerID string, isNewDocument bool) WireDocument {
	doc := WireDocument{
		OwnerID:   ownerID,
		IsoYear:   rec.IsoYear,
		IsoWeek:   rec.IsoWeek,
		Target:    rec.Target,
		DailyLogs: rec.Clone().DailyLogs,
		CreatedAt: Concrete(rec.CreatedAt),
		UpdatedAt: AssignOnWrite(),
	}
	if isNewDocument {
		doc.CreatedAt = AssignOnWrite()
	}
	return doc
}

// FromWire decodes a stored document. Unrecognised timestamp shapes are
// replaced with the current time and logged; decoding never fails.
func (c *Codec) FromWire(ctx context.Context, doc StoredDocument) models.WeekRecord {
	rec := models.WeekRecord{
		IsoYear:   doc.IsoYear,
		IsoWeek:   doc.IsoWeek,
		Target:    doc.Target,
		DailyLogs: doc.DailyLogs,
		CreatedAt: c.resolve(ctx, "createdAt", doc.CreatedAt),
		UpdatedAt: c.resolve(ctx, "updatedAt", doc.UpdatedAt),
	}
	if rec.DailyLogs == nil {
		rec.DailyLogs = []models.DailyLogEntry{}
	}
	return rec
}

// ResolveTimestamp converts v to a time, falling back to now with a warning.
func (c *Codec) ResolveTimestamp(ctx context.Context, v any) time.Time {
	return c.resolve(ctx, "timestamp", v)
}

func (c *Codec) resolve(ctx context.Context, field string, v any) time.Time {
	if t, ok := ResolveTimestamp(v); ok {
		return t
	}
	c.log.Warn(ctx, "unrecognised timestamp shape, using current time", "field", field, "type", typeName(v))
	return c.now().UTC()
}

// DeriveDisplayFields returns the Monday and Sunday of the week.
func DeriveDisplayFields(isoYear, isoWeek int) (startDate, endDate string) {
	return isoweek.Range(isoYear, isoWeek)
}

// ToView attaches the display fields to rec.
func ToView(rec models.WeekRecord) models.WeekView {
	start, end := DeriveDisplayFields(rec.IsoYear, rec.IsoWeek)
	return models.WeekView{WeekRecord: rec, StartDate: start, EndDate: end}
}
