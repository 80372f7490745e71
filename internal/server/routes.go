package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/gorilla/websocket"

	"pushme-server/internal/protocol"
	"pushme-server/internal/results"
)

const (
	defaultRoundsLimit = 20
	maxRoundsLimit     = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Options configures the HTTP surface
type Options struct {
	ClientDir         string // static client files; empty serves none
	PublicURL         string // encoded by /qr
	AdminPasswordHash string // bcrypt; empty disables /admin
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, opts Options) *http.ServeMux {
	mux := http.NewServeMux()

	if opts.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(opts.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(opts.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warnw("upgrade error", "addr", ip, "err", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, r.URL.Query().Get("enc") == "msgpack")
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"connections": hub.TotalConns(),
			"clients":     hub.ClientCount(),
			"lobby":       hub.coord.Lobby().Metrics().Snapshot(),
			"arena":       hub.coord.Arena().Metrics().Snapshot(),
		})
	})

	mux.HandleFunc("/rounds", func(w http.ResponseWriter, r *http.Request) {
		if hub.store == nil {
			http.Error(w, "round history disabled", http.StatusNotFound)
			return
		}
		limit := defaultRoundsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			if n > maxRoundsLimit {
				n = maxRoundsLimit
			}
			limit = n
		}
		rounds, err := hub.store.RecentRounds(r.Context(), limit)
		if err != nil {
			hub.log.Errorw("list rounds", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if rounds == nil {
			rounds = []results.Round{}
		}
		writeJSON(w, http.StatusOK, rounds)
	})

	mux.HandleFunc("/protocol/schema.json", func(w http.ResponseWriter, r *http.Request) {
		data, err := protocol.SchemaJSON()
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/schema+json")
		w.Write(data)
	})

	mux.Handle("/qr", qrHandler(opts.PublicURL))

	if opts.AdminPasswordHash != "" {
		admin := newAdmin(hub, opts.AdminPasswordHash)
		mux.Handle("/admin/sessions", admin.require(http.HandlerFunc(admin.sessions)))
		mux.Handle("/admin/end-round", admin.require(http.HandlerFunc(admin.endRound)))
	}

	return mux
}
