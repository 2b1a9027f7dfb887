package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meetly/signal-server/internal/auth"
	"github.com/meetly/signal-server/internal/metrics"
	"github.com/meetly/signal-server/internal/ratelimit"
)

// Time allowed to write a frame to the peer.
const writeWait = 10 * time.Second

// client wraps a single live connection. The server owns it exclusively and
// destroys it on disconnect.
type client struct {
	// id is the unique, opaque connection identifier. Directed relay targets
	// connections by this value.
	id string

	identity auth.Identity

	conn *websocket.Conn
	srv  *Server

	limiter *ratelimit.TokenBucket

	// send is the outbound frame queue, drained by writePump. It is never
	// closed; writePump exits via done instead, so concurrent trySend calls
	// can never hit a closed channel.
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// trySend queues a pre-marshaled frame without blocking. A full queue or a
// closing connection drops the frame: delivery is fire-and-forget and a stuck
// consumer must never block the sender.
func (c *client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.srv.metrics.Inc(metrics.SendQueueFull)
		return false
	}
}

// readPump reads frames from the connection and hands them to the router. It
// runs in the connection's handler goroutine; exiting triggers full teardown.
func (c *client) readPump() {
	defer c.srv.dropClient(c)

	c.conn.SetReadLimit(c.srv.cfg.MaxSignalingMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.SignalingWSIdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.SignalingWSIdleTimeout))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.limiter != nil && !c.limiter.Allow(1) {
			c.srv.metrics.Inc(metrics.RateLimited)
			c.srv.log.Warn("closing connection over signaling rate limit", "conn_id", c.id)
			c.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.srv.handleFrame(c, data)
	}
}

// writePump is the single writer for the connection: it drains the send
// queue and emits keepalive pings.
func (c *client) writePump() {
	ticker := time.NewTicker(c.srv.cfg.SignalingWSPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (c *client) closeWith(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = c.conn.Close()
}
