package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pushme-server/internal/protocol"
	"pushme-server/internal/session"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	idBytes           = 8
	binaryMarker      = 0xFF
)

// Client is one WebSocket connection. It implements session.Member.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	quit       chan struct{}
	closeOnce  sync.Once
	remoteAddr string
	msgpack    bool // state frames as binary msgpack
	msgCount   int
	msgResetAt time.Time

	mu     sync.Mutex
	sess   *session.Session
	id     string
	closed bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, msgpack bool) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		quit:       make(chan struct{}),
		remoteAddr: remoteAddr,
		msgpack:    msgpack,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.Close()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debugw("ws read error", "addr", c.remoteAddr, "err", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.hub.log.Warnw("rate limit exceeded, disconnecting", "addr", c.remoteAddr)
			break
		}

		if msgType != websocket.TextMessage {
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}

		case <-c.quit:
			// flush what is queued, then say goodbye
			for {
				select {
				case message := <-c.send:
					if err := c.write(message); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if len(message) > 0 && message[0] == binaryMarker {
		return c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorw("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text message
func (c *Client) SendRaw(data []byte) {
	select {
	case c.send <- data:
	case <-c.quit:
	default:
		// Client too slow, drop message
	}
}

// SendBinary queues bytes as a binary message. The marker byte tells
// WritePump which frame type to use.
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	case <-c.quit:
	default:
	}
}

// SendState sends a snapshot in the encoding the client asked for
func (c *Client) SendState(frames *protocol.StateFrames) {
	if c.msgpack {
		c.SendBinary(frames.Msgpack)
		return
	}
	c.SendRaw(frames.JSON)
}

// Attach routes the client's commands to s
func (c *Client) Attach(s *session.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sess = s
	return true
}

// Close disconnects after queued messages are written
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.quit)
	})
}

// current returns the session and identity commands are routed to
func (c *Client) current() (*session.Session, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess, c.id
}

// detach forgets the session binding and returns what it was
func (c *Client) detach() (*session.Session, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, id := c.sess, c.id
	c.sess = nil
	return s, id
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env protocol.InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.log.Debugw("unmarshal error", "addr", c.remoteAddr, "err", err)
		return
	}

	switch env.T {
	case protocol.MsgJoin:
		c.handleJoin(env.D)
	case protocol.MsgMove:
		c.handleMove(env.D)
	case protocol.MsgPunch:
		c.handlePunch(env.D)
	case protocol.MsgReady:
		if s, id := c.current(); s != nil {
			s.Ready(id)
		}
	case protocol.MsgLeave:
		s, id := c.detach()
		if s != nil {
			s.Leave(id)
		}
		c.hub.release(id, c)
	case protocol.MsgEndRound:
		if s, _ := c.current(); s != nil && s.Kind() == session.Arena {
			s.EndRound()
		}
	default:
		c.SendJSON(protocol.Envelope{T: protocol.MsgError, Data: protocol.ErrorMsg{Msg: "unknown message type"}})
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	// a join in flight has an id but no session yet
	if _, id := c.current(); id != "" {
		c.SendJSON(protocol.Envelope{T: protocol.MsgError, Data: protocol.ErrorMsg{Msg: "already joined"}})
		return
	}
	var msg protocol.JoinMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendJSON(protocol.Envelope{T: protocol.MsgError, Data: protocol.ErrorMsg{Msg: "malformed join"}})
			return
		}
	}

	req, target, err := c.hub.resolveJoin(msg)
	if err != nil {
		c.hub.log.Infow("join rejected", "addr", c.remoteAddr, "err", err)
		c.SendJSON(protocol.Envelope{T: protocol.MsgRejected, Data: protocol.RejectedMsg{
			Reason: protocol.RejectBadTicket,
			Msg:    ErrInvalidTicket.Error(),
		}})
		c.Close()
		return
	}

	if !c.hub.claim(req.ID, c) {
		c.hub.log.Infow("join rejected, identity in use", "addr", c.remoteAddr, "id", req.ID)
		c.SendJSON(protocol.Envelope{T: protocol.MsgRejected, Data: protocol.RejectedMsg{
			Reason: protocol.RejectDuplicate,
			Msg:    "identity already connected",
		}})
		c.Close()
		return
	}

	c.mu.Lock()
	c.id = req.ID
	c.mu.Unlock()
	req.Member = c
	target.Join(req)
}

func (c *Client) handleMove(data json.RawMessage) {
	s, id := c.current()
	if s == nil {
		return
	}
	var msg protocol.DirectionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s.Move(id, msg.Direction())
}

func (c *Client) handlePunch(data json.RawMessage) {
	s, id := c.current()
	if s == nil {
		return
	}
	if len(data) == 0 || string(data) == "null" {
		s.Punch(id, nil)
		return
	}
	var msg protocol.DirectionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	dir := msg.Direction()
	if dir.IsZero() {
		s.Punch(id, nil)
		return
	}
	s.Punch(id, &dir)
}
