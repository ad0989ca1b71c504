// Package cache holds the snapshot cache that fronts the budget provider
// and a small LRU used for month views.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// Fetcher is the slice of the provider the cache needs.
type Fetcher interface {
	Fetch(ctx context.Context, budgetID, sinceCursor string) (core.Delta, error)
}

// SnapshotCache serves one budget's snapshot, refreshed through the
// provider's delta protocol. Readers get immutable snapshots; a refresh
// merges the delta into a copy and swaps the pointer, so a held snapshot
// is never torn.
type SnapshotCache struct {
	fetcher  Fetcher
	budgetID string
	logger   *log.Logger

	snap  atomic.Pointer[core.Snapshot]
	dirty atomic.Bool
	group singleflight.Group
}

// New creates a cache for budgetID backed by fetcher.
func New(fetcher Fetcher, budgetID string, logger *log.Logger) *SnapshotCache {
	return &SnapshotCache{
		fetcher:  fetcher,
		budgetID: budgetID,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// BudgetID returns the budget this cache serves.
func (c *SnapshotCache) BudgetID() string {
	return c.budgetID
}

// Current returns the published snapshot without refreshing. It is nil
// until the first successful refresh.
func (c *SnapshotCache) Current() *core.Snapshot {
	return c.snap.Load()
}

// Invalidate marks the snapshot dirty so the next Get refreshes no matter
// how fresh it is. The entity is recorded for traceability only; refresh
// granularity is the whole snapshot.
func (c *SnapshotCache) Invalidate(kind core.EntityKind, id string) {
	c.dirty.Store(true)
	c.logger.Debug("snapshot invalidated",
		log.FieldEntityKind, kind.String(),
		log.FieldEntityID, id)
}

// Get returns a snapshot no older than maxStaleness. A zero maxStaleness
// forces a refresh, as does a pending invalidation. Concurrent callers
// needing the same refresh share one provider fetch.
func (c *SnapshotCache) Get(ctx context.Context, maxStaleness time.Duration) (*core.Snapshot, error) {
	if snap := c.snap.Load(); snap != nil && maxStaleness > 0 && !c.dirty.Load() {
		if time.Since(snap.FetchedAt) <= maxStaleness {
			return snap, nil
		}
	}
	return c.refresh(ctx)
}

// ForceRefresh fetches and merges now, regardless of snapshot age.
func (c *SnapshotCache) ForceRefresh(ctx context.Context) (*core.Snapshot, error) {
	return c.refresh(ctx)
}

func (c *SnapshotCache) refresh(ctx context.Context) (*core.Snapshot, error) {
	var since string
	if snap := c.snap.Load(); snap != nil {
		since = snap.Cursor
	}

	// Coalesce by the cursor the refresh starts from: one provider fetch
	// per cursor generation. The fetch keeps running if every waiting
	// caller gives up, so the merge still lands for future callers.
	ch := c.group.DoChan(since, func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), since)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *SnapshotCache) doRefresh(ctx context.Context, since string) (*core.Snapshot, error) {
	// Another flight may have advanced the snapshot while this caller
	// queued; skip the fetch unless an invalidation still stands.
	if snap := c.snap.Load(); snap != nil && snap.Cursor != since && !c.dirty.Load() {
		return snap, nil
	}

	wasDirty := c.dirty.Swap(false)

	start := time.Now()
	delta, err := c.fetcher.Fetch(ctx, c.budgetID, since)
	if err != nil {
		if wasDirty {
			c.dirty.Store(true)
		}
		return nil, fmt.Errorf("fetch budget %s: %w", c.budgetID, err)
	}

	prev := c.snap.Load()
	if prev == nil {
		prev = core.NewSnapshot(c.budgetID)
	}
	next := prev.Merge(delta, time.Now())
	c.snap.Store(next)

	c.logger.Info("snapshot refreshed",
		log.FieldBudgetID, c.budgetID,
		log.FieldCursor, next.Cursor,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"transactions", len(next.Transactions),
		"categories", len(next.Categories))
	return next, nil
}
