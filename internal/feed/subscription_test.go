package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/alanyoungcy/flipfeed/internal/platform/chainflip"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeStream struct {
	frames chan []byte
	err    error
}

func newFakeStream(frames ...[]byte) *fakeStream {
	s := &fakeStream{frames: make(chan []byte, len(frames)+1)}
	for _, f := range frames {
		s.frames <- f
	}
	return s
}

func (s *fakeStream) Frames() <-chan []byte { return s.frames }
func (s *fakeStream) Err() error            { return s.err }
func (s *fakeStream) Close() error          { return nil }

type fakeSnapshotter struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSnapshotter) Rebuild(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

// dialScript returns each stream in turn, then blocks new connections until
// the context is cancelled.
func dialScript(streams ...Stream) Dial {
	var next atomic.Int32
	return func(ctx context.Context, _ ...chainflip.StreamRequest) (Stream, error) {
		i := int(next.Add(1)) - 1
		if i < len(streams) {
			return streams[i], nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func tradeFrame(id string) []byte {
	return []byte(`{"type": "TradeFormat", "stid": 1, "trade_id": "` + id + `", "p": "2000", "q": "1"}`)
}

func TestLoopDeliversEventsInOrder(t *testing.T) {
	stream := newFakeStream(tradeFrame("a"), tradeFrame("b"), []byte("garbage"))
	snaps := &fakeSnapshotter{}
	loop := NewLoop(dialScript(stream), snaps, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var events []domain.StreamEvent
	for len(events) < 3 {
		select {
		case ev := <-loop.Events():
			events = append(events, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, domain.EventTradeUpdate, events[0].Type)
	assert.Equal(t, "a", events[0].Trade.TradeID)
	assert.Equal(t, "b", events[1].Trade.TradeID)
	assert.Equal(t, domain.EventUnknown, events[2].Type)

	// Sequence numbers are assigned in arrival order.
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, uint64(3), events[2].Seq)

	// Connecting triggered the initial snapshot rebuild.
	assert.Equal(t, int32(1), snaps.calls.Load())
}

func TestLoopClosesEventsOnCancel(t *testing.T) {
	loop := NewLoop(dialScript(newFakeStream()), &fakeSnapshotter{}, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)

	_, open := <-loop.Events()
	assert.False(t, open)
	assert.Equal(t, StateStopped, loop.State())
}

func TestLoopReconnectsAfterDisconnect(t *testing.T) {
	dropped := newFakeStream()
	close(dropped.frames)
	replacement := newFakeStream()

	snaps := &fakeSnapshotter{}
	loop := NewLoop(dialScript(dropped, replacement), snaps, Config{
		InitialBackoff: time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	// Each connect rebuilds, so a second rebuild means the loop reconnected.
	require.Eventually(t, func() bool {
		return snaps.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoopGivesUpAfterMaxRetries(t *testing.T) {
	dialErr := errors.New("connection refused")
	dial := func(ctx context.Context, _ ...chainflip.StreamRequest) (Stream, error) {
		return nil, dialErr
	}
	loop := NewLoop(dial, &fakeSnapshotter{}, Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}, testLogger())

	err := loop.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubscriptionFatal)
	assert.ErrorIs(t, err, dialErr)

	_, open := <-loop.Events()
	assert.False(t, open)
	assert.Equal(t, StateStopped, loop.State())
}

func TestLoopBacksOffWhenStreamDropsImmediately(t *testing.T) {
	var dials atomic.Int32
	dial := func(ctx context.Context, _ ...chainflip.StreamRequest) (Stream, error) {
		dials.Add(1)
		s := newFakeStream()
		close(s.frames)
		return s, nil
	}
	loop := NewLoop(dial, &fakeSnapshotter{}, Config{
		MaxRetries:     2,
		InitialBackoff: 20 * time.Millisecond,
	}, testLogger())

	start := time.Now()
	err := loop.Run(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubscriptionFatal)
	assert.ErrorIs(t, err, domain.ErrWSDisconnect)

	// A dial that succeeds but drops before any frame still burns a retry,
	// so a flapping remote sees MaxRetries+1 attempts, not a hot loop.
	assert.Equal(t, int32(3), dials.Load())
	// 20ms after the first drop plus 40ms after the second.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestLoopRetryBudgetResetsAfterFrames(t *testing.T) {
	var dials atomic.Int32
	dial := func(ctx context.Context, _ ...chainflip.StreamRequest) (Stream, error) {
		n := dials.Add(1)
		s := newFakeStream()
		if n <= 2 {
			s.frames <- tradeFrame("t")
		}
		close(s.frames)
		return s, nil
	}
	loop := NewLoop(dial, &fakeSnapshotter{}, Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
	}, testLogger())

	err := loop.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubscriptionFatal)

	// The first two streams carried frames, restoring the budget each time;
	// only the final dead stream exhausts the single allowed retry.
	assert.Equal(t, int32(3), dials.Load())

	var delivered int
	for range loop.Events() {
		delivered++
	}
	assert.Equal(t, 2, delivered)
}

func TestLoopKeepsRunningWhenRebuildFails(t *testing.T) {
	stream := newFakeStream(tradeFrame("a"))
	snaps := &fakeSnapshotter{err: errors.New("node unreachable")}
	loop := NewLoop(dialScript(stream), snaps, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case ev := <-loop.Events():
		assert.Equal(t, domain.EventTradeUpdate, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	cancel()
	require.NoError(t, <-done)
}
