package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Controller is the part of the game the transport layer talks to
type Controller interface {
	Pause()
	Resume()
	Reset()
	Snapshot() FrameState
	Stats() GameStats
	Variant() string
	TickRate() int
}

// Hub tracks connected spectators and fans frames out to them
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	game      Controller
	auth      *Auth
	telemetry *Telemetry
	logger    *log.Logger
}

// NewHub creates a new Hub
func NewHub(auth *Auth, tel *Telemetry, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		ipConns:    make(map[string]int),
		auth:       auth,
		telemetry:  tel,
		logger:     logger.WithPrefix("hub"),
	}
}

// Attach connects the hub to the game it serves. Call before Run.
func (h *Hub) Attach(game Controller) {
	h.game = game
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Register hands a new connection to the hub. It reports false once the
// hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection. After the hub has stopped it returns
// immediately.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run processes register/unregister events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("spectator joined", "id", client.id, "addr", client.remoteAddr, "spectators", n)
			h.telemetry.Track(EvtSpectatorJoin, "", "id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("spectator left", "id", client.id, "spectators", n)
			h.telemetry.Track(EvtSpectatorLeave, "", "id", client.id)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// PublishFrame encodes the frame once and sends it to every spectator
func (h *Hub) PublishFrame(frame FrameState) {
	data, err := msgpack.Marshal(&frame)
	if err != nil {
		h.logger.Error("encode frame", "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendBinary(data)
	}
}

func (h *Hub) sendFrame(c *Client, frame FrameState) {
	data, err := msgpack.Marshal(&frame)
	if err != nil {
		h.logger.Error("encode frame", "err", err)
		return
	}
	c.SendBinary(data)
}

// PublishEvent sends a JSON event to every spectator
func (h *Hub) PublishEvent(ev EventMsg) {
	data, err := json.Marshal(Envelope{T: MsgEvent, Data: ev})
	if err != nil {
		h.logger.Error("encode event", "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendRaw(data)
	}
}

// ClientCount returns the number of connected spectators
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
