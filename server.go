package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize       = 256
	maxLoginBody = 1 << 10
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

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// viewerURL is the address a phone should open to watch the arena
func viewerURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return publicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, game Controller, tel *Telemetry, clientDir, publicURL string) *http.ServeMux {
	mux := http.NewServeMux()

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
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
			hub.logger.Warn("upgrade", "addr", ip, "err", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		if !hub.Register(client) {
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}
		client.Welcome()

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(viewerURL(r, publicURL), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, StatsResponse{
			Game:       game.Stats(),
			Telemetry:  tel.Snapshot(),
			Spectators: hub.ClientCount(),
		})
	})

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req LoginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Msg: "bad request"})
			return
		}
		ip := extractIP(r)
		token, exp, err := hub.auth.Login(req.Passphrase, ip)
		switch {
		case err == nil:
			hub.logger.Info("operator login", "addr", ip)
			writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp.Unix()})
		case errors.Is(err, ErrAuthDisabled):
			writeJSON(w, http.StatusNotFound, ErrorMsg{Msg: err.Error()})
		case errors.Is(err, ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, ErrorMsg{Msg: err.Error()})
		case errors.Is(err, ErrBadPassphrase):
			hub.logger.Warn("failed operator login", "addr", ip)
			writeJSON(w, http.StatusUnauthorized, ErrorMsg{Msg: err.Error()})
		default:
			hub.logger.Error("login", "err", err)
			writeJSON(w, http.StatusInternalServerError, ErrorMsg{Msg: "internal error"})
		}
	})

	return mux
}
