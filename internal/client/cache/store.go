// Package cache is the local, per-device store of recently seen weeks.
//
// Entries expire after a TTL (five minutes by default). Reads never fail:
// any storage or decoding problem is logged and reported as a miss so the
// caller falls back to the remote store. Writes come in two flavours: Put
// reports failures, PutBestEffort only logs them.
package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
)

// DefaultTTL is how long a cached week is served without a remote read.
const DefaultTTL = 5 * time.Minute

type Store interface {
	// Get returns the cached week, or false when it is missing, expired or
	// unreadable.
	Get(ctx context.Context, key string) (*models.WeekRecord, bool)
	// Put stores rec and returns an error wrapping common.ErrCacheUnavailable
	// on failure.
	Put(ctx context.Context, key string, rec models.WeekRecord) error
	// PutBestEffort stores rec, logging and discarding any failure.
	PutBestEffort(ctx context.Context, key string, rec models.WeekRecord)
	// Delete drops a single entry, logging and discarding any failure.
	Delete(ctx context.Context, key string)
	// Clear drops every entry and forgets the recorded owner.
	Clear(ctx context.Context) error
	// BindOwner records owner as the one the cached weeks belong to. When
	// a different owner was recorded, every entry is dropped first and
	// cleared is true. A cache with no recorded owner is claimed as is.
	BindOwner(ctx context.Context, owner string) (cleared bool, err error)
	// ListAll returns every cached week, expired ones included, ordered by
	// key. It returns an empty slice on failure.
	ListAll(ctx context.Context) []models.WeekRecord
}
