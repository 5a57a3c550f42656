// Package server implements the chat acceptor: it accepts TCP connections and
// WebSocket upgrades and runs one Session per connection against a shared
// Directory.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/metrics"
)

// ErrServerClosed is returned by Serve after Shutdown has been called.
var ErrServerClosed = errors.New("chat server closed")

// Server owns the Directory and every live connection.
type Server struct {
	opts     Options
	creds    Verifier
	metrics  *metrics.Chat
	dir      *Directory
	upgrader websocket.Upgrader

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[LineConn]struct{}
	shutdown  chan struct{}
	closeOnce sync.Once
	sessions  sync.WaitGroup
}

// New creates a server. m may be nil.
func New(opts Options, creds Verifier, m *metrics.Chat) *Server {
	opts = sanitizeOptions(opts)
	origins := newOriginPolicy(opts.AllowedOrigins)

	return &Server{
		opts:    opts,
		creds:   creds,
		metrics: m,
		dir: NewDirectory(
			WithDuplicateLogin(opts.DuplicateLogin),
			WithStaleGroupMembers(opts.KeepStaleGroupMembers),
			WithDirectoryMetrics(m),
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[LineConn]struct{}),
		shutdown:  make(chan struct{}),
	}
}

// Directory returns the shared session and group registry.
func (s *Server) Directory() *Directory {
	return s.dir
}

func (s *Server) closing() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// Serve accepts connections on ln until Shutdown is called or ln is closed.
// Other accept errors are retried with backoff. It always returns a non-nil
// error; after Shutdown it is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	if !s.trackListener(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	logger.Info("Chat server listening", "address", ln.Addr().String())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			// Descriptor exhaustion and aborted handshakes are transient.
			backoff = nextBackoff(backoff)
			logger.Warn("Accept error; retrying", "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-s.shutdown:
				return ErrServerClosed
			}
			continue
		}
		backoff = 0

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		s.start(NewTCPLineConn(conn, s.opts.MaxLineSize, s.opts.WriteTimeout))
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// HandleWebSocket upgrades the request and runs a session over it. It
// returns once the session ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}
	if s.closing() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	conn := NewWebSocketLineConn(ws, r.RemoteAddr, s.opts.MaxLineSize, s.opts.WriteTimeout)
	if session := s.track(conn); session != nil {
		defer s.untrack(conn)
		session.Run()
	}
}

// start runs a session for conn on its own goroutine.
func (s *Server) start(conn LineConn) {
	session := s.track(conn)
	if session == nil {
		return
	}
	go func() {
		defer s.untrack(conn)
		session.Run()
	}()
}

// track registers conn for shutdown and builds its session. It returns nil
// and closes conn when the server is already shutting down.
func (s *Server) track(conn LineConn) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing() {
		_ = conn.Close()
		return nil
	}
	s.conns[conn] = struct{}{}
	s.sessions.Add(1)
	s.metrics.ConnectionAccepted(conn.Transport())
	logger.Debug("Connection accepted", "remote_addr", conn.RemoteAddr(), "transport", conn.Transport(), "active", len(s.conns))

	return NewSession(conn, s.dir, s.creds, s.metrics, s.opts.RateLimit)
}

func (s *Server) untrack(conn LineConn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.sessions.Done()
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing() {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
}

// Shutdown stops every listener, closes every connection so each session runs
// its normal teardown, and waits for the sessions to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.shutdown)
		for ln := range s.listeners {
			if err := ln.Close(); err != nil && !isExpectedCloseError(err) {
				logger.Debug("Error closing listener", "error", err)
			}
		}
		conns := make([]LineConn, 0, len(s.conns))
		for conn := range s.conns {
			conns = append(conns, conn)
		}
		s.mu.Unlock()

		logger.Info("Chat server shutting down", "active", len(conns))
		for _, conn := range conns {
			_ = conn.Close()
		}
	})

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Chat server shutdown complete")
		return nil
	case <-ctx.Done():
		logger.Warn("Chat server shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}
