// Package feed runs the streaming side of the market data pipeline: it
// holds a WebSocket subscription to the liquidity provider streams, decodes
// incoming frames into events, and periodically rebuilds order book
// snapshots from the RPC node.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/alanyoungcy/flipfeed/internal/platform/chainflip"
)

// State describes where the subscription loop currently is in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateReceiving
	StateReconnecting
	StateStopped
)

// String returns the lowercase state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReceiving:
		return "receiving"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stream is one live WebSocket connection carrying raw frames.
type Stream interface {
	Frames() <-chan []byte
	Err() error
	Close() error
}

// Dial opens a connection subscribed to the given streams.
type Dial func(ctx context.Context, streams ...chainflip.StreamRequest) (Stream, error)

// Snapshotter rebuilds order book snapshots from the node. A failed rebuild
// must leave previously built books in place.
type Snapshotter interface {
	Rebuild(ctx context.Context) error
}

// Config tunes the subscription loop.
type Config struct {
	// Streams to subscribe on each (re)connect.
	Streams []chainflip.StreamRequest
	// RebuildInterval is how often books are rebuilt while connected.
	// Zero or negative disables periodic rebuilds.
	RebuildInterval time.Duration
	// MaxRetries is the number of consecutive failed reconnect attempts
	// tolerated before the loop gives up.
	MaxRetries int
	// InitialBackoff and MaxBackoff bound the doubling reconnect delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// EventBuffer sizes the outgoing event channel.
	EventBuffer int
}

// Loop owns one subscription connection and its reconnect lifecycle. Events
// are delivered on Events in arrival order; the channel is closed when Run
// returns.
type Loop struct {
	dial   Dial
	snaps  Snapshotter
	cfg    Config
	logger *slog.Logger
	state  atomic.Int32
	seq    atomic.Uint64
	events chan domain.StreamEvent
}

// NewLoop creates a subscription loop. Defaults: 5 retries, 1s initial
// backoff capped at 30s, 256 event buffer.
func NewLoop(dial Dial, snaps Snapshotter, cfg Config, logger *slog.Logger) *Loop {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	return &Loop{
		dial:   dial,
		snaps:  snaps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "subscription_loop")),
		events: make(chan domain.StreamEvent, cfg.EventBuffer),
	}
}

// Events returns the decoded event stream. Closed when Run returns.
func (l *Loop) Events() <-chan domain.StreamEvent { return l.events }

// State reports the loop's current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	if old != s {
		l.logger.Debug("state change",
			slog.String("from", old.String()),
			slog.String("to", s.String()),
		)
	}
}

// Run connects, pumps frames until disconnect, and reconnects with a
// doubling backoff. It returns nil on context cancellation and an error
// wrapping domain.ErrSubscriptionFatal after MaxRetries consecutive failed
// attempts. The events channel is closed before returning.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.events)
	defer l.setState(StateStopped)

	retries := 0
	backoff := l.cfg.InitialBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		l.setState(StateConnecting)
		stream, err := l.connect(ctx)
		if err == nil {
			l.setState(StateReceiving)
			before := l.seq.Load()
			err = l.pump(ctx, stream)
			stream.Close()
			if ctx.Err() != nil {
				return nil
			}
			// The retry budget resets only once frames actually flowed:
			// a dial that succeeds but drops immediately still burns an
			// attempt, otherwise a flapping remote is hammered forever.
			if l.seq.Load() > before {
				retries = 0
				backoff = l.cfg.InitialBackoff
			}
			l.logger.Warn("stream interrupted, reconnecting", slog.String("error", err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}

		retries++
		if retries > l.cfg.MaxRetries {
			l.logger.Error("giving up after repeated connection failures",
				slog.Int("retries", l.cfg.MaxRetries),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("feed: retries exhausted: %w: %w", domain.ErrSubscriptionFatal, err)
		}
		l.setState(StateReconnecting)
		l.logger.Warn("backing off before reconnect",
			slog.Int("attempt", retries),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.cfg.MaxBackoff)
	}
}

// connect dials, marks the loop subscribed, and runs an initial rebuild so
// consumers have fresh books before the first frame arrives.
func (l *Loop) connect(ctx context.Context) (Stream, error) {
	stream, err := l.dial(ctx, l.cfg.Streams...)
	if err != nil {
		return nil, err
	}
	l.setState(StateSubscribed)

	if l.snaps != nil {
		if err := l.snaps.Rebuild(ctx); err != nil {
			l.logger.Warn("initial snapshot rebuild failed, keeping previous books",
				slog.String("error", err.Error()),
			)
		}
	}
	return stream, nil
}

// pump dispatches frames until the stream errors or the context is
// cancelled. Cancellation is checked before every dispatch so no event is
// delivered after shutdown begins.
func (l *Loop) pump(ctx context.Context, stream Stream) error {
	var rebuild *time.Ticker
	var rebuildC <-chan time.Time
	if l.cfg.RebuildInterval > 0 {
		rebuild = time.NewTicker(l.cfg.RebuildInterval)
		rebuildC = rebuild.C
		defer rebuild.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rebuildC:
			if l.snaps == nil {
				continue
			}
			if err := l.snaps.Rebuild(ctx); err != nil {
				l.logger.Warn("periodic snapshot rebuild failed, keeping previous books",
					slog.String("error", err.Error()),
				)
			}
		case frame, ok := <-stream.Frames():
			if !ok {
				if err := stream.Err(); err != nil {
					return err
				}
				return domain.ErrWSDisconnect
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			event := chainflip.DecodeStreamFrame(frame)
			event.Seq = l.seq.Add(1)
			if event.Type == domain.EventUnknown {
				l.logger.Debug("passing through unrecognized frame", slog.Uint64("seq", event.Seq))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case l.events <- event:
			}
		}
	}
}
