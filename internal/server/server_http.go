package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kspeckhals01/browser-tab-manager/internal/auth"
)

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	return s.createMux()
}

// createMux creates the HTTP mux with all endpoints.
func (s *Server) createMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// handleWebSocket authenticates and upgrades a connection to /ws.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		http.Error(w, "server stopped", http.StatusServiceUnavailable)
		return
	}

	if s.tokens != nil && s.tokens.Enabled() {
		if err := s.tokens.Validate(auth.BearerToken(r)); err != nil {
			s.logger.Warn("connection rejected", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		conn:    conn,
		send:    make(chan Message, channelBufferSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		server:  s,
		limiter: rate.NewLimiter(s.rateLimit, s.rateBurst),
		logger:  s.logger.With(zap.String("remote_addr", r.RemoteAddr)),
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	client.logger.Info("client connected", zap.Int("clients", s.ClientCount()))

	go client.writePump()
	go client.readPump()
}
