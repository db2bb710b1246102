package redis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/book_publish.lua
var bookPublishLua string

// BookCache implements domain.BookCache using a Redis hash per trading pair.
//
// Key schema:
//
//	book:{pair} - hash with fields "version", "payload" (JSON book), "ts"
//
// Publishes go through a Lua script that rejects version regressions, so a
// stale snapshot from a reconnecting publisher never overwrites a newer one.
type BookCache struct {
	rdb         *redis.Client
	bookPublish *redis.Script
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{
		rdb:         c.Underlying(),
		bookPublish: redis.NewScript(bookPublishLua),
	}
}

func bookKey(pair string) string { return "book:" + pair }

// PublishSnapshot writes the book unless a snapshot with an equal or newer
// version is already published for the pair. Skipped writes are not errors.
func (bc *BookCache) PublishSnapshot(ctx context.Context, book domain.OrderBook) error {
	payload, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.Pair, err)
	}

	keys := []string{bookKey(book.Pair)}
	args := []interface{}{
		strconv.FormatUint(book.Version, 10),
		payload,
		strconv.FormatInt(book.Timestamp.UnixNano(), 10),
	}
	if err := bc.bookPublish.Run(ctx, bc.rdb, keys, args...).Err(); err != nil {
		return fmt.Errorf("redis: publish book %s v%d: %w", book.Pair, book.Version, err)
	}
	return nil
}

// Snapshot reads back the published book for a pair. It returns
// domain.ErrNotFound when nothing has been published yet.
func (bc *BookCache) Snapshot(ctx context.Context, pair string) (domain.OrderBook, error) {
	vals, err := bc.rdb.HGetAll(ctx, bookKey(pair)).Result()
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: get book %s: %w", pair, err)
	}
	if len(vals) == 0 {
		return domain.OrderBook{}, domain.ErrNotFound
	}

	var book domain.OrderBook
	if err := json.Unmarshal([]byte(vals["payload"]), &book); err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: decode book %s: %w", pair, err)
	}
	if tsStr, ok := vals["ts"]; ok && book.Timestamp.IsZero() {
		if tsNano, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			book.Timestamp = time.Unix(0, tsNano).UTC()
		}
	}
	return book, nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
