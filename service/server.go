package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 5 * time.Second

var errNotListening = errors.New("server is not listening")

// httpServer binds synchronously and serves in a second step, so a Shutdown
// issued at any point after New sees the listener and closes it.
type httpServer struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   bool
}

// listen binds addr. It fails with http.ErrServerClosed after Shutdown.
func (s *httpServer) listen(addr string, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return http.ErrServerClosed
	}
	if s.server != nil {
		return errors.New("server already listening")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Addr is the bound address, or nil before listen.
func (s *httpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// serve blocks until the server is shut down and then returns http.ErrServerClosed.
func (s *httpServer) serve() error {
	s.mu.Lock()
	server, ln := s.server, s.listener
	s.mu.Unlock()
	if server == nil {
		return errNotListening
	}
	return server.Serve(ln)
}

// Shutdown stops the server, waiting up to shutdownTimeout for open requests.
// It is safe to call before listen, in which case later listens fail.
func (s *httpServer) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	// Serve may not have taken ownership of the listener yet.
	if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}
