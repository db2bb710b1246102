package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/redis/go-redis/v9"
)

// eventStreamMaxLen is the approximate maximum length for the event stream,
// enforced via XADD MAXLEN ~.
const eventStreamMaxLen int64 = 10000

// eventStream is the Redis stream key all decoded events are appended to.
const eventStream = "events"

// EventBus implements domain.EventSink using Redis Streams for durable,
// ordered event delivery to external consumers.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// PublishEvent appends one decoded event to the event stream using XADD with
// approximate MAXLEN trimming. The event type and sequence are stored as
// separate fields so consumers can filter without decoding the payload.
func (eb *EventBus) PublishEvent(ctx context.Context, event domain.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event seq %d: %w", event.Seq, err)
	}

	args := &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: eventStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    string(event.Type),
			"seq":     event.Seq,
			"payload": payload,
		},
	}
	if err := eb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: event append seq %d: %w", event.Seq, err)
	}
	return nil
}

// ReadEvents reads up to count messages from the event stream starting after
// lastID. Use "0" to read from the beginning, or "$" for only new messages.
// It returns an empty slice (not an error) when nothing is available.
func (eb *EventBus) ReadEvents(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	args := &redis.XReadArgs{
		Streams: []string{eventStream, lastID},
		Count:   int64(count),
		// A zero Block would send BLOCK 0 and wait forever.
		Block: -1,
	}

	results, err := eb.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: event read: %w", err)
	}

	var messages []domain.StreamMessage
	for _, s := range results {
		for _, msg := range s.Messages {
			payload, ok := msg.Values["payload"]
			if !ok {
				continue
			}
			var data []byte
			switch v := payload.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}
			messages = append(messages, domain.StreamMessage{
				ID:      msg.ID,
				Payload: data,
			})
		}
	}
	return messages, nil
}

// Compile-time interface check.
var _ domain.EventSink = (*EventBus)(nil)
