// Package ws carries the live chat protocol: one WebSocket per user, a
// per-connection state machine over typed frames, and the push path fed by
// the fan-out bus.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"chathub/domain"
	"chathub/errors"
)

// State of one connection. Transitions only move forward; Closed is
// terminal.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxFrameSize = 16 * 1024
)

// Conn is one authenticated WebSocket connection, owned exclusively by this
// node. All socket writes funnel through the buffered send channel so the
// direct reply path and the bus push path never interleave frames.
type Conn struct {
	log         *slog.Logger
	ws          *websocket.Conn
	send        chan domain.Frame
	userID      string
	displayName string
	state       atomic.Int32
	closeOnce   sync.Once
	done        chan struct{}
}

func newConn(log *slog.Logger, ws *websocket.Conn, userID, displayName string, sendBuffer int) *Conn {
	c := &Conn{
		log:         log,
		ws:          ws,
		send:        make(chan domain.Frame, sendBuffer),
		userID:      userID,
		displayName: displayName,
		done:        make(chan struct{}),
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

func (c *Conn) UserID() string      { return c.userID }
func (c *Conn) DisplayName() string { return c.displayName }

func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// Send queues a frame for the write pump. It never blocks: a receiver too
// slow to drain its own buffer loses frames instead of stalling the
// fan-out path for everyone else.
func (c *Conn) Send(frame domain.Frame) error {
	if c.State() == StateClosed {
		return errors.ErrSessionClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errors.ErrSessionClosed
	default:
		c.log.Warn("Send buffer full, dropping frame", "userId", c.userID, "type", frame.Type)
		return errors.ErrSessionClosed
	}
}

// Close tears the transport down. Safe to call from every exit path; only
// the first call has an effect.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump pumps inbound frames into the protocol until the transport
// dies. Runs on the connection's own goroutine; parse failures produce an
// ERROR frame and keep the connection alive.
func (c *Conn) readPump(protocol *Protocol) {
	defer c.Close()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Read error", "userId", c.userID, "error", err)
			}
			return
		}

		var frame domain.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Debug("Malformed frame", "userId", c.userID, "error", err)
			_ = c.Send(domain.ErrorFrame(domain.CodeParseError, "malformed frame"))
			continue
		}
		protocol.HandleFrame(c, frame)
	}
}

// writePump serializes all socket writes and keeps the transport alive
// with pings. Runs on its own goroutine; exactly one writer per socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
