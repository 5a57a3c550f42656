// Package server runs one Session per connection: login, registration in
// the Directory, then the command loop until the connection fails.
package server

import (
	"bufio"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/metrics"
	"github.com/Tyrowin/gochat/internal/protocol"
)

// Verifier checks a username/password pair. *credentials.Store implements it.
type Verifier interface {
	Verify(username, password string) bool
}

// Session is the server side of one client connection. Its commands are
// executed strictly in arrival order on the goroutine that calls Run.
type Session struct {
	id      string
	conn    LineConn
	dir     *Directory
	creds   Verifier
	metrics *metrics.Chat
	limiter *rateLimiter
	log     *slog.Logger

	username string
}

// NewSession prepares a session over conn. Run drives it.
func NewSession(conn LineConn, dir *Directory, creds Verifier, m *metrics.Chat, rl RateLimitConfig) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		conn:    conn,
		dir:     dir,
		creds:   creds,
		metrics: m,
		limiter: newRateLimiter(rl.Burst, rl.RefillInterval),
		log: logger.With(
			"session_id", id,
			"remote_addr", conn.RemoteAddr(),
			"transport", conn.Transport(),
		),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Username returns the authenticated username, empty before login.
func (s *Session) Username() string { return s.username }

// Send writes msg to the client. It is safe to call from any goroutine.
func (s *Session) Send(msg string) error {
	return s.conn.WriteString(msg)
}

// Run serves the connection until it fails or is closed, then tears the
// session down. The connection is always closed when Run returns.
func (s *Session) Run() {
	defer s.teardown()

	s.log.Debug("Session started")

	username, ok := s.authenticate()
	if !ok {
		return
	}
	if !s.register(username) {
		return
	}
	s.serve()
}

// authenticate runs the username/password exchange. There is no retry.
func (s *Session) authenticate() (string, bool) {
	username, ok := s.prompt(protocol.LoginBanner)
	if !ok {
		return "", false
	}
	password, ok := s.prompt(protocol.PasswordPrompt)
	if !ok {
		return "", false
	}

	if !s.creds.Verify(username, password) {
		s.metrics.AuthAttempt(metrics.AuthFailure)
		s.log.Info("Authentication failed", "user", username)
		s.reply(protocol.AuthFailed)
		return "", false
	}
	return username, true
}

// prompt sends text and returns the trimmed reply line.
func (s *Session) prompt(text string) (string, bool) {
	if !s.reply(text) {
		s.metrics.AuthAttempt(metrics.AuthAborted)
		return "", false
	}
	line, err := s.conn.ReadLine()
	if err != nil {
		s.metrics.AuthAttempt(metrics.AuthAborted)
		s.logReadError("Connection ended during login", err)
		return "", false
	}
	return protocol.Trim(line), true
}

func (s *Session) register(username string) bool {
	err := s.dir.Register(s, username)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateLogin):
		s.metrics.AuthAttempt(metrics.AuthDuplicate)
		s.log.Info("Rejected duplicate login", "user", username)
		s.reply(protocol.AlreadyConnected(username))
		return false
	default:
		s.log.Error("Registration failed", "user", username, "error", err)
		return false
	}

	s.username = username
	s.log = s.log.With("user", username)
	s.metrics.AuthAttempt(metrics.AuthSuccess)
	s.log.Info("User logged in")
	return true
}

func (s *Session) serve() {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			s.logReadError("Connection ended", err)
			return
		}

		if !s.limiter.allow() {
			s.log.Warn("Rate limit exceeded; discarding line")
			continue
		}

		s.execute(protocol.Parse(line))
	}
}

func (s *Session) execute(cmd protocol.Command) {
	s.metrics.Command(cmd.Kind.String())

	switch cmd.Kind {
	case protocol.Broadcast:
		s.dir.Broadcast(s, cmd.Text)
	case protocol.DirectMessage:
		s.dir.DirectMessage(s, s.username, cmd.Target, cmd.Text)
	case protocol.CreateGroup:
		s.dir.CreateGroup(s, cmd.Target)
	case protocol.JoinGroup:
		s.dir.JoinGroup(s, cmd.Target)
	case protocol.LeaveGroup:
		s.dir.LeaveGroup(s, cmd.Target)
	case protocol.GroupMessage:
		s.dir.GroupMessage(s, cmd.Target, cmd.Text)
	default:
		if usage, ok := protocol.Usage(cmd.Kind); ok {
			s.reply(usage)
		}
	}
}

// reply sends text to this session only. Failures surface on the next read.
func (s *Session) reply(text string) bool {
	if err := s.Send(text); err != nil {
		s.logReadError("Write failed", err)
		return false
	}
	return true
}

func (s *Session) teardown() {
	name, registered := s.dir.Deregister(s)
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		s.log.Debug("Error closing connection", "error", err)
	}
	if registered {
		s.dir.AnnounceLeave(name)
		s.log.Info("User disconnected")
	}
	s.log.Debug("Session ended")
}

func (s *Session) logReadError(msg string, err error) {
	switch {
	case errors.Is(err, bufio.ErrTooLong), errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn(msg+": line too long", "error", err)
	case isExpectedCloseError(err):
		s.log.Debug(msg, "error", err)
	default:
		s.log.Warn(msg, "error", err)
	}
}
