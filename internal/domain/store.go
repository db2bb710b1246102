package domain

import (
	"context"
	"time"
)

// BookCache publishes the latest order book snapshot per trading pair for
// external consumers. Implementations must reject writes that would regress a
// pair's published version.
type BookCache interface {
	PublishSnapshot(ctx context.Context, book OrderBook) error
	Snapshot(ctx context.Context, pair string) (OrderBook, error)
}

// CatalogStore persists discovered asset and market metadata. It does not
// store order or trade history.
type CatalogStore interface {
	UpsertAssets(ctx context.Context, assets []Asset) error
	UpsertMarkets(ctx context.Context, markets []Market) error
}

// SnapshotArchiver stores raw pool snapshot payloads for offline replay.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, pair string, raw []byte, at time.Time) error
}

// EventSink publishes decoded stream events for external consumers.
type EventSink interface {
	PublishEvent(ctx context.Context, event StreamEvent) error
}

// StreamMessage is one durable event bus entry.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// LockManager provides distributed locks for coordinating multiple service
// instances. Acquire returns ErrLockHeld when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
