package mongostore

import (
	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"go.mongodb.org/mongo-driver/bson"
)

type targetDoc struct {
	Value float64 `bson:"value"`
	Unit  string  `bson:"unit"`
}

type dailyLogDoc struct {
	Date  string  `bson:"date"`
	Value float64 `bson:"value"`
	Memo  string  `bson:"memo,omitempty"`
}

// weekDoc is the stored shape. Timestamps decode into interface values so
// whatever BSON type the server holds is passed on to the codec untouched.
type weekDoc struct {
	ID        string        `bson:"_id"`
	OwnerID   string        `bson:"ownerId"`
	IsoYear   int           `bson:"isoYear"`
	IsoWeek   int           `bson:"isoWeek"`
	Target    targetDoc     `bson:"target"`
	DailyLogs []dailyLogDoc `bson:"dailyLogs"`
	CreatedAt any           `bson:"createdAt"`
	UpdatedAt any           `bson:"updatedAt"`
}

func (d weekDoc) toStored() *codec.StoredDocument {
	logs := make([]models.DailyLogEntry, 0, len(d.DailyLogs))
	for _, l := range d.DailyLogs {
		logs = append(logs, models.DailyLogEntry{Date: l.Date, Value: l.Value, Memo: l.Memo})
	}
	return &codec.StoredDocument{
		OwnerID:   d.OwnerID,
		IsoYear:   d.IsoYear,
		IsoWeek:   d.IsoWeek,
		Target:    models.Target{Value: d.Target.Value, Unit: d.Target.Unit},
		DailyLogs: logs,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// generateUpdate builds the upsert update for doc. Concrete timestamps are
// written with $set, assign-on-write ones with $currentDate so the server
// clock stamps them at commit. Target and daily logs are always replaced
// wholesale.
func generateUpdate(doc codec.WireDocument) bson.M {
	logs := make([]dailyLogDoc, 0, len(doc.DailyLogs))
	for _, l := range doc.DailyLogs {
		logs = append(logs, dailyLogDoc{Date: l.Date, Value: l.Value, Memo: l.Memo})
	}

	set := bson.M{
		"ownerId":   doc.OwnerID,
		"isoYear":   doc.IsoYear,
		"isoWeek":   doc.IsoWeek,
		"target":    targetDoc{Value: doc.Target.Value, Unit: doc.Target.Unit},
		"dailyLogs": logs,
	}
	currentDate := bson.M{}

	for field, ts := range map[string]codec.Timestamp{"createdAt": doc.CreatedAt, "updatedAt": doc.UpdatedAt} {
		if t, ok := ts.Time(); ok {
			set[field] = t
		} else {
			currentDate[field] = bson.M{"$type": "date"}
		}
	}

	update := bson.M{"$set": set}
	if len(currentDate) > 0 {
		update["$currentDate"] = currentDate
	}
	return update
}
