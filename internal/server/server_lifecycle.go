package server

import (
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// StartAsync starts the server in a goroutine and returns any startup errors.
//
// The returned channel receives nil if startup succeeded, or an error if
// the listener could not be created (e.g., port already in use).
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	// Create the listener first to detect port conflicts immediately.
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("failed to listen on %s: %w", s.addr, err)
		close(errCh)
		return errCh
	}

	srv := &http.Server{Handler: s.createMux()}

	s.mu.Lock()
	s.httpServer = srv
	s.listenAddr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		s.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))
		errCh <- nil
		close(errCh)

		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("bridge server error", zap.Error(err))
		}
	}()

	return errCh
}

// Stop closes every client connection and the listener.
// Calling Stop more than once is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true

	// writePump sends the close frame and closes the connection when it
	// sees done; writing here would race with it.
	for client := range s.clients {
		client.closeSend()
	}
	s.clients = make(map[*Client]bool)
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Close()
	}
	return nil
}
