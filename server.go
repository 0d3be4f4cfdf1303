package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	cfg       *Config
	hub       *Hub
	registry  *Registry
	admission *Admission
	creates   *CreateLimiter
	upgrades  *HandshakeLimiter
	log       zerolog.Logger
	srv       *http.Server
}

func NewServer(cfg *Config, hub *Hub, registry *Registry, admission *Admission, store Store, log zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		hub:       hub,
		registry:  registry,
		admission: admission,
		creates:   NewCreateLimiter(store, cfg.CreateLimit, cfg.CreateWindow),
		upgrades:  NewHandshakeLimiter(cfg.HandshakeRatePerIP),
		log:       log.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/room", s.handleCreateRoom)
	mux.HandleFunc("GET /api/room/{id}/meta", s.handleRoomMeta)
	mux.HandleFunc("POST /api/room/{id}/destroy", s.handleDestroyRoom)
	mux.HandleFunc("GET /room/{id}", s.handleRoomPage)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) ListenAndServe() error {
	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		s.srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		s.log.Info().Str("cert", s.cfg.TLSCert).Msg("TLS enabled")
		return s.srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	s.log.Info().Msg("TLS disabled (no cert/key configured)")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("shutdown error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	ok, retryAfter, err := s.creates.Allow(r.Context(), ip)
	if err != nil {
		s.log.Error().Err(err).Msg("create limiter unavailable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "service unavailable"})
		return
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "too many rooms created, retry later"})
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	// Body is optional; a public room is created from an empty request.
	_ = json.NewDecoder(r.Body).Decode(&body)

	rec, err := s.registry.Create(r.Context(), body.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("room creation failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "service unavailable"})
		return
	}

	s.log.Info().Str("room", rec.ID).Bool("protected", rec.PasswordRequired).Msg("room created")
	writeJSON(w, http.StatusOK, map[string]any{"roomId": rec.ID})
}

func (s *Server) handleRoomMeta(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Room not found"})
		return
	case err != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "service unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"createdAt":        rec.CreatedAt.UnixMilli(),
		"ttl":              int64(rec.TTL.Seconds()),
		"passwordRequired": rec.PasswordRequired,
	})
}

func (s *Server) handleDestroyRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Destroy(r.Context(), id); err != nil {
		s.log.Error().Err(err).Str("room", id).Msg("destroy failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to destroy room"})
		return
	}
	s.log.Info().Str("room", id).Msg("room destroyed")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleWS validates the handshake against current room state before the
// connection joins any group. Failures are reported as a typed error event,
// then the connection is terminated; a connection is never admitted when room
// state cannot be verified.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if !s.upgrades.Allow(ip) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	roomID := r.URL.Query().Get("room")
	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")

	if roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if username == "" {
		username = "anonymous"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade error")
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := s.registry.Get(ctx, roomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		s.rejectWS(conn, errMsgRoomNotFound)
		return
	case err != nil:
		s.log.Error().Err(err).Str("room", roomID).Msg("handshake lookup failed")
		s.rejectWS(conn, errMsgUnavailable)
		return
	}

	if !rec.PasswordMatches(password) {
		s.rejectWS(conn, errMsgPassword)
		return
	}

	client := NewClient(s.hub, conn, roomID, username, ip)
	s.hub.Register(client)
}

// rejectWS emits the error event, then terminates the connection without
// joining any group.
func (s *Server) rejectWS(conn *websocket.Conn, message string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.TextMessage, errorEvent(message))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""), deadline)
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
