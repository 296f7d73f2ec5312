package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/cache"
	"github.com/dmitrijs2005/weeklog/internal/client/metrics"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const owner = "owner-1"

// ---- helpers ----

type harness struct {
	gw     *Gateway
	cache  cache.Store
	remote *fakeRemote
	id     *fakeIdentity
	clock  *fakeClock
	server *fakeClock
}

// newHarness builds a gateway over c, or over an in-memory SQLite cache
// when c is nil. The local clock runs two seconds ahead of the server's.
func newHarness(t *testing.T, c cache.Store, opts ...Option) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	server := &fakeClock{t: time.Date(2026, 2, 10, 8, 59, 58, 0, time.UTC)}
	if c == nil {
		db, err := cache.OpenDB(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		c = cache.NewSQLiteStore(db, cache.WithClock(clock.Now))
	}
	r := newFakeRemote(server.Now)
	id := &fakeIdentity{id: owner}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return &harness{
		gw:     NewGateway(c, r, id, opts...),
		cache:  c,
		remote: r,
		id:     id,
		clock:  clock,
		server: server,
	}
}

func sampleWeek() models.WeekRecord {
	r := models.NewUnpersisted(2026, 7)
	r.Target = models.Target{Value: 5000, Unit: "m"}
	r.UpsertDailyLog(models.DailyLogEntry{Date: "2026-02-10", Value: 800})
	return r
}

func remoteDown() error {
	return fmt.Errorf("%w: connection refused", common.ErrRemoteUnavailable)
}

// ---- loadWeek ----

func TestLoadWeek_CacheHitSkipsRemote(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := sampleWeek()
	require.NoError(t, h.cache.Put(ctx, rec.Key(), rec))

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)

	assert.Equal(t, 0, h.remote.gets)
	assert.Equal(t, rec.Target, view.Target)
	assert.Equal(t, "2026-02-09", view.StartDate)
	assert.Equal(t, "2026-02-15", view.EndDate)
}

func TestLoadWeek_MissReadsRemoteAndCaches(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	require.NoError(t, h.gw.ClearAllCache(ctx))

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, h.remote.gets)
	assert.Equal(t, h.server.Now(), view.CreatedAt)
	assert.Equal(t, h.server.Now(), view.UpdatedAt)
	assert.Equal(t, sampleWeek().DailyLogs, view.DailyLogs)

	_, err = h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, h.remote.gets, "second load must come from cache")
}

func TestLoadWeek_ExpiredCacheEntryRereadsRemote(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))

	h.clock.Advance(cache.DefaultTTL + time.Second)
	_, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, h.remote.gets)
}

func TestLoadWeek_SentinelWhenUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "not found", setup: func(*harness) {}},
		{name: "remote unreachable", setup: func(h *harness) { h.remote.getErr = remoteDown() }},
		{name: "no identity", setup: func(h *harness) { h.id.err = common.ErrNotAuthenticated }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			tt.setup(h)
			ctx := context.Background()

			view, err := h.gw.LoadWeek(ctx, 2026, 7)
			require.NoError(t, err)
			assert.True(t, view.IsUnpersisted())
			assert.Equal(t, models.UnpersistedAt, view.CreatedAt)
			assert.Empty(t, view.DailyLogs)
			assert.NotNil(t, view.DailyLogs)
			assert.Zero(t, view.Target)
			assert.Empty(t, h.gw.ListCachedWeeks(ctx), "sentinel must not be cached")
		})
	}
}

func TestLoadWeek_CachePanicFallsThroughToRemote(t *testing.T) {
	fc := newFakeCache()
	fc.panicGet = true
	h := newHarness(t, fc)

	view, err := h.gw.LoadWeek(context.Background(), 2026, 7)
	require.NoError(t, err)
	assert.True(t, view.IsUnpersisted())
	assert.Equal(t, 1, h.remote.gets)
}

func TestLoadWeek_InvalidWeek(t *testing.T) {
	h := newHarness(t, nil)
	for _, w := range [][2]int{{2026, 0}, {2026, 54}, {2025, 53}} {
		_, err := h.gw.LoadWeek(context.Background(), w[0], w[1])
		assert.ErrorIs(t, err, common.ErrInvalidWeek, "%v", w)
	}
	assert.Equal(t, 0, h.remote.gets)
}

// ---- saveWeek ----

func TestSaveWeek_NewDocumentGetsServerTimestamps(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	outcome, err := h.gw.SaveWeekDetailed(ctx, sampleWeek(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	doc, ok := h.remote.stored(owner, 2026, 7)
	require.True(t, ok)
	assert.Equal(t, owner, doc.OwnerID)
	assert.Equal(t, h.server.Now(), doc.CreatedAt)

	cached, ok := h.cache.Get(ctx, "2026-W07")
	require.True(t, ok)
	assert.Equal(t, h.clock.Now(), cached.CreatedAt, "cache holds the locally stamped copy")
	assert.Equal(t, h.clock.Now(), cached.UpdatedAt)
}

func TestSaveWeek_UpdateKeepsCreatedAt(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	created := h.server.Now()

	h.server.Advance(time.Hour)
	rec := sampleWeek()
	rec.Target.Value = 6000
	require.NoError(t, h.gw.SaveWeek(ctx, rec, nil))

	doc, _ := h.remote.stored(owner, 2026, 7)
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, 6000.0, doc.Target.Value)
	assert.Equal(t, 2, h.remote.writes)
}

func TestSaveWeek_ConflictTolerance(t *testing.T) {
	tests := []struct {
		name     string
		offset   time.Duration
		conflict bool
	}{
		{name: "exact", offset: 0},
		{name: "900ms ahead", offset: 900 * time.Millisecond},
		{name: "900ms behind", offset: -900 * time.Millisecond},
		{name: "one second", offset: time.Second},
		{name: "1100ms ahead", offset: 1100 * time.Millisecond, conflict: true},
		{name: "1100ms behind", offset: -1100 * time.Millisecond, conflict: true},
		{name: "an hour stale", offset: -time.Hour, conflict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			ctx := context.Background()
			require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
			stored := h.server.Now()

			h.server.Advance(time.Minute)
			rec := sampleWeek()
			rec.UpsertDailyLog(models.DailyLogEntry{Date: "2026-02-11", Value: 1200})
			expected := stored.Add(tt.offset)

			outcome, err := h.gw.SaveWeekDetailed(ctx, rec, &expected)

			if tt.conflict {
				require.ErrorIs(t, err, common.ErrConcurrentModification)
				assert.Equal(t, OutcomeConflict, outcome)
				assert.Equal(t, 1, h.remote.writes)
				_, cached := h.cache.Get(ctx, "2026-W07")
				assert.False(t, cached, "conflicting week must be dropped from cache")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, OutcomeSuccess, outcome)
			assert.Equal(t, 2, h.remote.writes)
		})
	}
}

func TestSaveWeek_ConflictIsNotMaskedByCache(t *testing.T) {
	fc := newFakeCache()
	h := newHarness(t, fc)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))

	stale := h.server.Now().Add(-time.Hour)
	rec := sampleWeek()
	rec.Target.Value = 1
	err := h.gw.SaveWeek(ctx, rec, &stale)

	require.ErrorIs(t, err, common.ErrConcurrentModification)
	assert.Equal(t, 0, fc.puts)
	assert.Equal(t, 1, fc.deletes)
	assert.Equal(t, "week changed elsewhere, reload and retry", common.UserMessage(err))
}

func TestSaveWeek_CustomTolerance(t *testing.T) {
	h := newHarness(t, nil, WithConflictTolerance(5*time.Second))
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))

	expected := h.server.Now().Add(3 * time.Second)
	rec := sampleWeek()
	rec.Target.Value = 1
	require.NoError(t, h.gw.SaveWeek(ctx, rec, &expected))
}

func TestSaveWeek_UnchangedContentSkipsWrite(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := sampleWeek()
	rec.UpsertDailyLog(models.DailyLogEntry{Date: "2026-02-09", Value: 100})

	first, err := h.gw.SaveWeekDetailed(ctx, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, first)

	reordered := rec.Clone()
	reordered.DailyLogs[0], reordered.DailyLogs[1] = reordered.DailyLogs[1], reordered.DailyLogs[0]
	reordered.UpdatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	second, err := h.gw.SaveWeekDetailed(ctx, reordered, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second)
	assert.Equal(t, 1, h.remote.writes)
	assert.Equal(t, 2, h.remote.txs)
}

func TestSaveWeek_SkippedWriteCachesStoredCopy(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	storedAt := h.server.Now()

	h.clock.Advance(cache.DefaultTTL + time.Minute)
	outcome, err := h.gw.SaveWeekDetailed(ctx, sampleWeek(), nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome)

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, storedAt, view.UpdatedAt)
	assert.Equal(t, storedAt, view.CreatedAt)

	edited := view.WeekRecord.Clone()
	edited.Target.Value = 6000
	outcome, err = h.gw.SaveWeekDetailed(ctx, edited, &view.UpdatedAt)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestSaveWeek_RemoteFailureFallsBackToCache(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	h := newHarness(t, nil, WithLogger(log))
	h.remote.txErr = remoteDown()
	h.remote.getErr = remoteDown()
	ctx := context.Background()

	outcome, err := h.gw.SaveWeekDetailed(ctx, sampleWeek(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, outcome)
	assert.Contains(t, buf.String(), "DEGRADED")
	assert.Contains(t, buf.String(), "2026-W07")

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.False(t, view.IsUnpersisted())
	assert.Equal(t, sampleWeek().Target, view.Target)
	assert.Equal(t, h.clock.Now(), view.UpdatedAt)
}

func TestSaveWeek_DegradedPaths(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "remote error", setup: func(h *harness) { h.remote.txErr = remoteDown() }},
		{name: "remote panic", setup: func(h *harness) { h.remote.panicTx = true }},
		{name: "no identity", setup: func(h *harness) { h.id.err = common.ErrNotAuthenticated }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeCache()
			h := newHarness(t, fc)
			tt.setup(h)

			outcome, err := h.gw.SaveWeekDetailed(context.Background(), sampleWeek(), nil)
			require.NoError(t, err)
			assert.Equal(t, OutcomeDegraded, outcome)
			assert.Equal(t, 1, fc.puts)
			assert.Contains(t, fc.entries, "2026-W07")
		})
	}
}

func TestSaveWeek_NoIdentityNeverTouchesRemote(t *testing.T) {
	h := newHarness(t, newFakeCache())
	h.id.err = common.ErrNotAuthenticated

	require.NoError(t, h.gw.SaveWeek(context.Background(), sampleWeek(), nil))
	assert.Equal(t, 0, h.remote.txs)
}

func TestSaveWeek_PersistenceFailed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness, fc *fakeCache)
	}{
		{name: "both fail", setup: func(h *harness, fc *fakeCache) {
			h.remote.txErr = remoteDown()
			fc.putErr = fmt.Errorf("disk full")
		}},
		{name: "both panic", setup: func(h *harness, fc *fakeCache) {
			h.remote.panicTx = true
			fc.panicPut = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeCache()
			h := newHarness(t, fc)
			tt.setup(h, fc)

			outcome, err := h.gw.SaveWeekDetailed(context.Background(), sampleWeek(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrPersistenceFailed)
			assert.Equal(t, OutcomeFailed, outcome)
			assert.Contains(t, err.Error(), "2026-W07")
			assert.Equal(t, "could not save, check connection", common.UserMessage(err))
		})
	}
}

func TestSaveWeek_PersistenceFailedCarriesCauses(t *testing.T) {
	fc := newFakeCache()
	fc.putErr = fmt.Errorf("disk full")
	h := newHarness(t, fc)
	h.remote.txErr = remoteDown()

	err := h.gw.SaveWeek(context.Background(), sampleWeek(), nil)
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.ErrorIs(t, err, common.ErrCacheUnavailable)
}

func TestSaveWeek_InvalidWeek(t *testing.T) {
	h := newHarness(t, nil)
	rec := models.NewUnpersisted(2026, 60)

	outcome, err := h.gw.SaveWeekDetailed(context.Background(), rec, nil)
	assert.ErrorIs(t, err, common.ErrInvalidWeek)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 0, h.remote.txs)
}

// ---- convenience operations ----

func TestTargetThenDayLog(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.gw.SaveTarget(ctx, 2026, 7, 5000, "m"))
	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-10", models.DailyLogEntry{Value: 800}))

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, models.Target{Value: 5000, Unit: "m"}, view.Target)
	assert.Equal(t, []models.DailyLogEntry{{Date: "2026-02-10", Value: 800}}, view.DailyLogs)
	assert.False(t, view.IsUnpersisted())
	assert.Equal(t, "2026-02-09", view.StartDate)
	assert.Equal(t, "2026-02-15", view.EndDate)

	doc, ok := h.remote.stored(owner, 2026, 7)
	require.True(t, ok)
	assert.Equal(t, models.Target{Value: 5000, Unit: "m"}, doc.Target)
	assert.Len(t, doc.DailyLogs, 1)
	assert.Equal(t, 2, h.remote.writes)
}

func TestSaveDayLog_ReplacesSameDate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-10", models.DailyLogEntry{Value: 800}))
	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-10", models.DailyLogEntry{Value: 950, Memo: "tempo"}))
	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-12", models.DailyLogEntry{Value: 300}))

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.DailyLogEntry{
		{Date: "2026-02-10", Value: 950, Memo: "tempo"},
		{Date: "2026-02-12", Value: 300},
	}, view.DailyLogs)
	assert.Equal(t, 1250.0, view.Total())
}

func TestSaveDayLog_WeekOfYearBoundary(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// 2027-01-01 is a Friday and belongs to 2026-W53
	require.NoError(t, h.gw.SaveDayLog(ctx, "2027-01-01", models.DailyLogEntry{Value: 5}))

	_, ok := h.remote.stored(owner, 2026, 53)
	assert.True(t, ok)
}

func TestSaveDayLog_InvalidDate(t *testing.T) {
	h := newHarness(t, nil)

	err := h.gw.SaveDayLog(context.Background(), "10/02/2026", models.DailyLogEntry{Value: 1})
	assert.ErrorIs(t, err, common.ErrInvalidDate)
	assert.Equal(t, 0, h.remote.txs)
}

func TestSaveTarget_EmptyUnitKeepsCurrent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveTarget(ctx, 2026, 7, 40, "km"))

	require.NoError(t, h.gw.SaveTarget(ctx, 2026, 7, 42, ""))

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, models.Target{Value: 42, Unit: "km"}, view.Target)
}

func TestSaveTarget_InvalidWeek(t *testing.T) {
	h := newHarness(t, nil)
	err := h.gw.SaveTarget(context.Background(), 2026, 0, 1, "km")
	assert.ErrorIs(t, err, common.ErrInvalidWeek)
}

// ---- owner binding ----

func TestGateway_OwnerChangeDropsCachedWeeks(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.id.id = "alice"
	h.remote.getErr = remoteDown()
	h.remote.txErr = remoteDown()
	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-10", models.DailyLogEntry{Value: 999, Memo: "alice-private"}))
	require.Len(t, h.gw.ListCachedWeeks(ctx), 1)

	h.id.id = "bob"
	h.remote.getErr = nil
	h.remote.txErr = nil

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.True(t, view.IsUnpersisted())

	require.NoError(t, h.gw.SaveDayLog(ctx, "2026-02-11", models.DailyLogEntry{Value: 1}))
	doc, ok := h.remote.stored("bob", 2026, 7)
	require.True(t, ok)
	assert.Equal(t, []models.DailyLogEntry{{Date: "2026-02-11", Value: 1}}, doc.DailyLogs)
	_, ok = h.remote.stored("alice", 2026, 7)
	assert.False(t, ok)
}

func TestGateway_SameOwnerKeepsCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))

	_, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, h.remote.gets)
	assert.Len(t, h.gw.ListCachedWeeks(ctx), 1)
}

func TestGateway_NoIdentityKeepsCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))

	h.id.err = common.ErrNotAuthenticated
	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.False(t, view.IsUnpersisted())
	assert.Equal(t, 0, h.remote.gets)
}

func TestGateway_UnboundCacheIsBypassed(t *testing.T) {
	fc := newFakeCache()
	rec := sampleWeek()
	fc.entries[rec.Key()] = rec
	fc.bindErr = fmt.Errorf("database is locked")
	h := newHarness(t, fc)
	ctx := context.Background()

	view, err := h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, err)
	assert.True(t, view.IsUnpersisted())
	assert.Equal(t, 0, fc.gets)
	assert.Equal(t, 1, h.remote.gets)
	assert.Empty(t, h.gw.ListCachedWeeks(ctx))

	h.remote.txErr = remoteDown()
	err = h.gw.SaveWeek(ctx, rec, nil)
	assert.ErrorIs(t, err, common.ErrPersistenceFailed)
	assert.ErrorIs(t, err, common.ErrCacheUnavailable)
	assert.Equal(t, 0, fc.puts)
}

// ---- cache management ----

func TestListAndClearCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.gw.SaveTarget(ctx, 2026, 8, 1, "km"))
	require.NoError(t, h.gw.SaveTarget(ctx, 2026, 7, 1, "km"))

	weeks := h.gw.ListCachedWeeks(ctx)
	require.Len(t, weeks, 2)
	assert.Equal(t, "2026-W07", weeks[0].Key())
	assert.Equal(t, "2026-W08", weeks[1].Key())

	require.NoError(t, h.gw.ClearAllCache(ctx))
	assert.Empty(t, h.gw.ListCachedWeeks(ctx))
}

func TestRemoteStatus(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.gw.RemoteStatus(context.Background()))

	h.remote.pingErr = remoteDown()
	assert.ErrorIs(t, h.gw.RemoteStatus(context.Background()), common.ErrRemoteUnavailable)
}

// ---- instrumentation ----

func TestGateway_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, nil, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	_, _ = h.gw.LoadWeek(ctx, 2026, 7)
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	_, _ = h.gw.LoadWeek(ctx, 2026, 7)
	h.remote.txErr = remoteDown()
	rec := sampleWeek()
	rec.Target.Value = 1
	require.NoError(t, h.gw.SaveWeek(ctx, rec, nil))

	expected := `
# HELP weeklog_gateway_week_loads_total Weeks returned by loadWeek, by where they came from
# TYPE weeklog_gateway_week_loads_total counter
weeklog_gateway_week_loads_total{source="cache"} 1
weeklog_gateway_week_loads_total{source="sentinel"} 1
# HELP weeklog_gateway_week_saves_total saveWeek calls by outcome
# TYPE weeklog_gateway_week_saves_total counter
weeklog_gateway_week_saves_total{outcome="degraded"} 1
weeklog_gateway_week_saves_total{outcome="skipped"} 1
weeklog_gateway_week_saves_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"weeklog_gateway_week_loads_total", "weeklog_gateway_week_saves_total"))
	count, err := testutil.GatherAndCount(reg, "weeklog_gateway_remote_operation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "get and transaction latencies")
}

func TestGateway_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	h := newHarness(t, nil, WithTracerProvider(tp))
	ctx := context.Background()

	require.NoError(t, h.gw.SaveWeek(ctx, sampleWeek(), nil))
	stale := h.server.Now().Add(-time.Hour)
	rec := sampleWeek()
	rec.Target.Value = 1
	require.Error(t, h.gw.SaveWeek(ctx, rec, &stale))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "Gateway.SaveWeek", s.Name())
		assert.Contains(t, s.Attributes(), attribute.String("weeklog.week", "2026-W07"))
	}
	assert.Contains(t, spans[0].Attributes(), attribute.String("weeklog.outcome", "success"))
	assert.Contains(t, spans[1].Attributes(), attribute.String("weeklog.outcome", "conflict"))
	assert.Equal(t, otelcodes.Error, spans[1].Status().Code)
}

func TestGateway_LogsCarryTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	h := newHarness(t, nil, WithTracerProvider(tp), WithLogger(log))
	h.remote.txErr = remoteDown()

	require.NoError(t, h.gw.SaveWeek(context.Background(), sampleWeek(), nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	out := buf.String()
	assert.Contains(t, out, "DEGRADED")
	assert.Contains(t, out, "trace_id="+spans[0].SpanContext().TraceID().String())
	assert.Contains(t, out, "span_id="+spans[0].SpanContext().SpanID().String())
}
