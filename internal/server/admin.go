package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pushme-server/internal/protocol"
	"pushme-server/internal/session"
)

const (
	adminUser        = "admin"
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	snapshotTimeout  = 2 * time.Second
)

// admin guards operator endpoints with HTTP Basic auth
type admin struct {
	hub  *Hub
	hash []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

func newAdmin(hub *Hub, hash string) *admin {
	return &admin{
		hub:     hub,
		hash:    []byte(hash),
		rateMap: make(map[string]*rateEntry),
	}
}

func (a *admin) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.checkRate(extractIP(r)) {
			http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != adminUser || bcrypt.CompareHashAndPassword(a.hash, []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="pushme admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *admin) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// sessions lists the live state of both sessions
func (a *admin) sessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	out := make(map[string]protocol.GameState, 2)
	for _, k := range []session.Kind{session.Lobby, session.Arena} {
		gs, err := a.hub.coord.Session(k).Snapshot(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		out[string(k)] = gs
	}
	writeJSON(w, http.StatusOK, out)
}

// endRound forces the arena round to end without awards
func (a *admin) endRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.hub.coord.Arena().EndRound()
	a.hub.log.Infow("arena round ended by operator", "addr", extractIP(r))
	w.WriteHeader(http.StatusAccepted)
}
