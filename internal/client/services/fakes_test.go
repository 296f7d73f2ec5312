package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- fake remote ----

// fakeRemote keeps documents in memory and assigns server timestamps from
// its own clock, storing updatedAt as a BSON date the way the document
// store driver would hand it back.
type fakeRemote struct {
	mu   sync.Mutex
	docs map[remote.DocumentPath]codec.StoredDocument
	now  func() time.Time

	getErr  error
	txErr   error
	pingErr error
	panicTx bool

	gets   int
	txs    int
	writes int
}

func newFakeRemote(now func() time.Time) *fakeRemote {
	return &fakeRemote{docs: map[remote.DocumentPath]codec.StoredDocument{}, now: now}
}

func (f *fakeRemote) Get(_ context.Context, p remote.DocumentPath) (*codec.StoredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.docs[p]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

func (f *fakeRemote) RunTransaction(ctx context.Context, p remote.DocumentPath, fn remote.TxFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs++
	if f.panicTx {
		panic("driver exploded")
	}
	if f.txErr != nil {
		return f.txErr
	}

	var existing *codec.StoredDocument
	if d, ok := f.docs[p]; ok {
		cp := d
		existing = &cp
	}

	doc, err := fn(ctx, existing)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	f.writes++
	f.docs[p] = f.materialise(*doc)
	return nil
}

func (f *fakeRemote) Ping(context.Context) error  { return f.pingErr }
func (f *fakeRemote) Close(context.Context) error { return nil }

func (f *fakeRemote) materialise(doc codec.WireDocument) codec.StoredDocument {
	now := f.now().UTC()
	stamp := func(ts codec.Timestamp) time.Time {
		if t, ok := ts.Time(); ok {
			return t
		}
		return now
	}
	return codec.StoredDocument{
		OwnerID:   doc.OwnerID,
		IsoYear:   doc.IsoYear,
		IsoWeek:   doc.IsoWeek,
		Target:    doc.Target,
		DailyLogs: doc.DailyLogs,
		CreatedAt: stamp(doc.CreatedAt),
		UpdatedAt: primitive.NewDateTimeFromTime(stamp(doc.UpdatedAt)),
	}
}

func (f *fakeRemote) stored(owner string, y, w int) (codec.StoredDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[remote.PathFor(owner, y, w)]
	return d, ok
}

// ---- fake cache ----

// fakeCache is a map-backed cache.Store with failure switches. It has no
// TTL; TTL behaviour is covered by the SQLite store's own tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]models.WeekRecord

	owner    string
	putErr   error
	bindErr  error
	panicGet bool
	panicPut bool

	gets, puts, bestEffort, deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]models.WeekRecord{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (*models.WeekRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.panicGet {
		panic("cache corrupted")
	}
	r, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	r = r.Clone()
	return &r, true
}

func (c *fakeCache) Put(_ context.Context, key string, rec models.WeekRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.panicPut {
		panic("disk on fire")
	}
	if c.putErr != nil {
		return errors.Join(common.ErrCacheUnavailable, c.putErr)
	}
	c.entries[key] = rec.Clone()
	return nil
}

func (c *fakeCache) PutBestEffort(_ context.Context, key string, rec models.WeekRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bestEffort++
	if c.putErr != nil {
		return
	}
	c.entries[key] = rec.Clone()
}

func (c *fakeCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.entries, key)
}

func (c *fakeCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]models.WeekRecord{}
	c.owner = ""
	return nil
}

func (c *fakeCache) BindOwner(_ context.Context, owner string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindErr != nil {
		return false, errors.Join(common.ErrCacheUnavailable, c.bindErr)
	}
	cleared := c.owner != "" && c.owner != owner
	if cleared {
		c.entries = map[string]models.WeekRecord{}
	}
	c.owner = owner
	return cleared, nil
}

func (c *fakeCache) ListAll(context.Context) []models.WeekRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.WeekRecord, 0, len(c.entries))
	for _, r := range c.entries {
		out = append(out, r.Clone())
	}
	return out
}

// ---- fake identity ----

type fakeIdentity struct {
	id  string
	err error
}

func (f *fakeIdentity) ResolveCallerID(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

// ---- clock ----

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
