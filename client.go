package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 20
)

// Client is one spectator connection. A spectator becomes an operator
// after presenting a valid token.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	operator   bool
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         uuid.NewString()[:8],
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Unregister(c)
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
				c.hub.logger.Warn("ws read", "id", c.id, "err", err)
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.hub.logger.Warn("rate limit exceeded, disconnecting", "id", c.id, "addr", c.remoteAddr)
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix from SendBinary marks a binary frame
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("marshal", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// The 0xFF marker lets WritePump tell it apart from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// Welcome greets a new connection and sends it the current frame
func (c *Client) Welcome() {
	g := c.hub.game
	if g == nil {
		return
	}
	snap := g.Snapshot()
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:       c.id,
		Variant:  g.Variant(),
		Arena:    snap.Arena,
		TickRate: g.TickRate(),
		Control:  c.hub.auth.Enabled(),
	}})
	c.hub.sendFrame(c, snap)
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.logger.Debug("unmarshal", "id", c.id, "err", err)
		return
	}

	switch env.T {
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgControl:
		c.handleControl(env.D)
	case MsgPing:
		c.SendJSON(Envelope{T: MsgPong})
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad auth message")
		return
	}
	if err := c.hub.auth.ValidateToken(msg.Token); err != nil {
		c.hub.logger.Warn("token rejected", "id", c.id, "addr", c.remoteAddr, "err", err)
		c.sendError("invalid token")
		return
	}
	c.operator = true
	c.hub.logger.Info("operator authenticated", "id", c.id, "addr", c.remoteAddr)
	c.SendJSON(Envelope{T: MsgAuthOK})
}

func (c *Client) handleControl(data json.RawMessage) {
	if !c.operator {
		c.sendError("not authorized")
		return
	}
	var msg ControlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad control message")
		return
	}
	g := c.hub.game
	if g == nil {
		return
	}
	switch msg.Op {
	case OpPause:
		g.Pause()
	case OpResume:
		g.Resume()
	case OpReset:
		g.Reset()
	default:
		c.sendError("unknown op")
		return
	}
	c.hub.logger.Info("control", "op", msg.Op, "id", c.id)
}
