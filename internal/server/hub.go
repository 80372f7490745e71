package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pushme-server/internal/protocol"
	"pushme-server/internal/results"
	"pushme-server/internal/session"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub tracks connected clients and routes them into the coordinator's
// sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	// identity -> connection holding it
	idMu sync.Mutex
	live map[string]*Client

	coord   *session.Coordinator
	tickets *Tickets
	store   results.Store
	log     *zap.SugaredLogger

	// Connection limiting (accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	perIP      int
	total      int
}

// NewHub creates a Hub. store may be nil, which disables /rounds.
func NewHub(coord *session.Coordinator, tickets *Tickets, store results.Store, log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		live:       make(map[string]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		coord:      coord,
		tickets:    tickets,
		store:      store,
		log:        log.Named("hub"),
		ipConns:    make(map[string]int),
		perIP:      maxConnsPerIP,
		total:      maxTotalConns,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.total {
		return false
	}
	if h.ipConns[ip] >= h.perIP {
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

// Run processes register/unregister events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
			// Remove from whichever session currently owns the identity
			s, id := client.detach()
			if s != nil {
				s.Leave(id)
				h.log.Debugw("client left", "id", id, "session", s.Kind())
			}
			h.release(id, client)
		}
	}
}

// resolveJoin turns a join message into a request. A valid ticket restores
// the identity, skin and score it carries and may name the arena; anything
// else enters the lobby as a new identity.
func (h *Hub) resolveJoin(msg protocol.JoinMsg) (session.JoinRequest, *session.Session, error) {
	if msg.Ticket == "" {
		return session.JoinRequest{ID: GenerateID(idBytes), Skin: msg.Skin}, h.coord.Lobby(), nil
	}
	if h.tickets == nil {
		return session.JoinRequest{}, nil, ErrInvalidTicket
	}
	t, err := h.tickets.Verify(msg.Ticket)
	if err != nil {
		return session.JoinRequest{}, nil, err
	}
	skin := t.Skin
	if msg.Skin != "" {
		skin = msg.Skin
	}
	target := h.coord.Lobby()
	if session.Kind(msg.Session) == session.Arena {
		target = h.coord.Arena()
	}
	return session.JoinRequest{ID: t.ID, Skin: skin, Score: t.Score}, target, nil
}

// claim binds id to c. It fails while another connection holds id.
func (h *Hub) claim(id string, c *Client) bool {
	h.idMu.Lock()
	defer h.idMu.Unlock()
	if owner, ok := h.live[id]; ok && owner != c {
		return false
	}
	h.live[id] = c
	return true
}

// release frees id if c still holds it
func (h *Hub) release(id string, c *Client) {
	if id == "" {
		return
	}
	h.idMu.Lock()
	defer h.idMu.Unlock()
	if h.live[id] == c {
		delete(h.live, id)
	}
}

// ClientCount returns the number of connected clients
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
