package chainflip

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// frameBuffer is the capacity of the raw frame channel; it decouples the
	// read pump from consumer pacing without reordering frames.
	frameBuffer = 256

	// ackWait bounds how long Subscribe waits for each handshake
	// acknowledgement before giving up on the connection.
	ackWait = 10 * time.Second
)

// StreamRequest names one stream to subscribe to and its handshake params
// (trading pair identifiers, account address).
type StreamRequest struct {
	Stream string
	Params []any
}

// StreamConn is one live streaming connection. Frames are delivered in
// arrival order on Frames(); the channel is closed when the connection dies
// or Close is called, after which Err reports the terminal read error, if
// any.
type StreamConn struct {
	conn   *websocket.Conn
	frames chan []byte

	mu     sync.Mutex
	err    error
	closed bool

	done chan struct{}
}

// Subscribe opens a streaming connection and performs the subscribe
// handshake for each requested stream, waiting for the node to acknowledge
// every one before the first pump starts. Connection and handshake failures
// are returned to the caller; retry policy belongs to the subscription loop,
// not here.
func (e *Executor) Subscribe(ctx context.Context, streams ...StreamRequest) (*StreamConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, e.cfg.WSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chainflip: dial stream: %w", err)
	}

	sc := &StreamConn{
		conn:   conn,
		frames: make(chan []byte, frameBuffer),
		done:   make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for _, req := range streams {
		params := req.Params
		if params == nil {
			params = []any{}
		}
		handshake := rpcRequest{
			JSONRPC: "2.0",
			ID:      e.nextID.Add(1),
			Method:  req.Stream,
			Params:  params,
		}
		payload, err := json.Marshal(handshake)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("chainflip: marshal handshake for %s: %w", req.Stream, err)
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			return nil, fmt.Errorf("chainflip: subscribe to %s: %w", req.Stream, err)
		}
		if err := awaitAck(conn, req.Stream); err != nil {
			conn.Close()
			return nil, err
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))

	go sc.readPump()
	go sc.pingPump()

	return sc, nil
}

// awaitAck reads the node's response to one subscribe request. A JSON-RPC
// error or a response without a result means the subscription was refused.
func awaitAck(conn *websocket.Conn, stream string) error {
	conn.SetReadDeadline(time.Now().Add(ackWait))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("chainflip: await ack for %s: %w", stream, err)
	}

	var ack rpcResponse
	if err := json.Unmarshal(message, &ack); err != nil {
		return fmt.Errorf("chainflip: decode ack for %s: %w", stream, err)
	}
	if ack.Error != nil {
		return fmt.Errorf("chainflip: subscription to %s rejected: %w", stream, ack.Error)
	}
	if len(ack.Result) == 0 {
		return fmt.Errorf("chainflip: acknowledgement for %s missing result", stream)
	}
	return nil
}

// Frames returns the channel of raw frames in arrival order.
func (sc *StreamConn) Frames() <-chan []byte {
	return sc.frames
}

// Err returns the terminal read error after Frames is closed. A clean Close
// yields nil.
func (sc *StreamConn) Err() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.err
}

// Close shuts the connection down. Safe to call multiple times.
func (sc *StreamConn) Close() error {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil
	}
	sc.closed = true
	close(sc.done)
	sc.mu.Unlock()

	_ = sc.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return sc.conn.Close()
}

// readPump reads frames until the connection errors or Close is called, then
// closes the frame channel.
func (sc *StreamConn) readPump() {
	defer close(sc.frames)

	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			sc.mu.Lock()
			if !sc.closed {
				sc.err = fmt.Errorf("chainflip: read stream: %w: %w", domain.ErrWSDisconnect, err)
			}
			sc.mu.Unlock()
			return
		}

		select {
		case sc.frames <- message:
		case <-sc.done:
			return
		}
	}
}

// pingPump keeps the connection alive with periodic pings.
func (sc *StreamConn) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sc.done:
			return
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
