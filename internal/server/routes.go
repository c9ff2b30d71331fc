// Package server wires the chat hub, upload pipeline and static file serving
// onto an HTTP mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iniduniaku/anon/internal/chat"
	"github.com/iniduniaku/anon/internal/upload"
)

// statsTimeout bounds how long /stats waits for the hub loop to answer.
const statsTimeout = 2 * time.Second

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Anonymous chat has no origin allow-list; any page may connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server holds the handlers' dependencies.
type Server struct {
	hub     *chat.Hub
	uploads *upload.Service
	logger  *slog.Logger
}

// New creates the HTTP server wiring.
func New(hub *chat.Hub, uploads *upload.Service, logger *slog.Logger) *Server {
	return &Server{
		hub:     hub,
		uploads: uploads,
		logger:  logger,
	}
}

// Routes returns the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWs)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.uploads.Dir()))))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	stats, err := s.hub.Stats(ctx)
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleWs upgrades the HTTP request to a websocket connection, registers a
// new client with the hub and starts its pumps.
func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := chat.NewClient(s.hub, conn, clientIP(r))
	s.hub.Register <- client
	client.Start()
}

// handleUpload accepts one multipart file field named "file" and responds
// with the stored file's metadata for the client to embed in a media or
// voice message.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	res, err := s.uploads.Save(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		s.logger.Error("upload failed", "name", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upload failed"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// clientIP extracts the client's address, honoring the first hop of
// X-Forwarded-For when the server sits behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
