package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
	"baatcheet/pkg/validation"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// send buffer per connection; a slow consumer drops frames rather than
	// stalling fan-out for everyone else
	sendBuffer = 256
)

// Connection lifecycle. A connection that fails authentication never
// reaches stateActive and never touches the registry.
type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticating
	stateActive
	stateClosed
)

// Client is one live connection: an authenticated websocket session bound
// to a user identity. Destroyed on disconnect; reconnection starts a fresh
// cycle with a new connection ID.
type Client struct {
	ID       string
	user     models.User
	authedAt time.Time

	conn  *websocket.Conn
	send  chan []byte
	state atomic.Int32

	// sendMu orders enqueue against close so fan-out can never hit a
	// closed channel while a disconnect unwinds.
	sendMu sync.Mutex
	closed bool

	gw *Gateway
}

func newClient(id string, user models.User, conn *websocket.Conn, gw *Gateway) *Client {
	c := &Client{
		ID:       id,
		user:     user,
		authedAt: time.Now().UTC(),
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		gw:       gw,
	}
	c.state.Store(int32(stateAuthenticating))
	return c
}

// enqueue hands a frame to the write pump. Full buffer means the frame is
// dropped for this connection only; a closed connection drops silently.
func (c *Client) enqueue(b []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		logger.Warn("send_buffer_full", "conn", c.ID, "user", c.user.ID)
	}
}

// close shuts the send channel exactly once; the write pump then closes
// the transport.
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.state.Store(int32(stateClosed))
	close(c.send)
}

// teardown unwinds a finished connection: hub removal, then the
// conditional presence offline transition. Runs for graceful and abrupt
// closes alike.
func (c *Client) teardown() {
	c.gw.hub.remove(c)
	c.gw.tracker.HandleDisconnect(c.user.ID, c.ID)
	c.close()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// readPump consumes inbound frames and dispatches them inline, one at a
// time, so events from one connection are processed in arrival order.
func (c *Client) readPump() {
	defer c.teardown()
	c.conn.SetReadLimit(c.gw.frameLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("ws_read_error", "conn", c.ID, "user", c.user.ID, "error", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Debug("ws_bad_frame", "conn", c.ID, "error", err)
			continue
		}
		metrics.EventsIn.WithLabelValues(env.Event).Inc()
		in, err := DecodeInbound(env)
		if err != nil {
			logger.Debug("ws_unknown_event", "conn", c.ID, "error", err)
			continue
		}
		c.handle(env, in)
	}
}

// writePump flushes queued frames and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one decoded inbound event. The switch is exhaustive
// over the Inbound variants.
func (c *Client) handle(env Envelope, in Inbound) {
	switch v := in.(type) {
	case TypingStart:
		// fire-and-forget relay, nothing persisted
		c.gw.hub.ToUser(v.To, "typing:start", models.TypingEvent{From: c.user.ID})
	case TypingStop:
		c.gw.hub.ToUser(v.To, "typing:stop", models.TypingEvent{From: c.user.ID})
	case MessageSend:
		m, _, err := c.gw.pipeline.Submit(c.user, v.SubmitInput)
		if err != nil {
			logger.Warn("message_send_failed", "conn", c.ID, "user", c.user.ID, "error", err)
			c.ack(env, AckPayload{OK: false, Error: publicError(err)})
			return
		}
		c.gw.pipeline.Deliver(m, c.ID)
		c.ack(env, AckPayload{OK: true, Message: m})
	case MessageSeen:
		if _, err := c.gw.receipts.MarkSeenLive(c.user.ID, v.MessageID); err != nil {
			// unresolved ids produce no broadcast and no client error
			logger.Debug("mark_seen_failed", "conn", c.ID, "msg", v.MessageID, "error", err)
		}
	case UsersRequest:
		c.sendRoster()
	}
}

// ack answers the originating connection; clients that sent no ack id get
// nothing.
func (c *Client) ack(env Envelope, p AckPayload) {
	if env.Ack == 0 {
		return
	}
	b, err := encodeAck(env.Ack, p)
	if err != nil {
		logger.Error("encode_ack_failed", "conn", c.ID, "error", err)
		return
	}
	c.enqueue(b)
	metrics.EventsOut.WithLabelValues("ack").Inc()
}

func (c *Client) sendRoster() {
	roster, err := c.gw.tracker.Roster()
	if err != nil {
		logger.Error("roster_failed", "conn", c.ID, "error", err)
		return
	}
	b, err := encodeEvent("presence:all-users", roster)
	if err != nil {
		logger.Error("encode_event_failed", "event", "presence:all-users", "error", err)
		return
	}
	c.enqueue(b)
	metrics.EventsOut.WithLabelValues("presence:all-users").Inc()
}

// publicError decides what intake failures are safe to echo to clients.
func publicError(err error) string {
	if errors.Is(err, validation.ErrEmptyMessage) || errors.Is(err, validation.ErrMissingRecipient) {
		return err.Error()
	}
	return "send failed"
}
