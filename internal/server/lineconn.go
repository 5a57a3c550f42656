// Package server provides the transports that carry the chat line protocol.
// Both TCP sockets and WebSocket connections are adapted to LineConn so a
// Session never needs to know which one it is talking over.
package server

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport names used in logs and metrics.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// LineConn is a bidirectional, line-oriented connection. ReadLine is called
// only from the owning session goroutine; WriteString and Close are safe for
// concurrent use.
type LineConn interface {
	// ReadLine returns the next line without its terminator. It returns an
	// error (io.EOF on orderly close) once no more lines can be read.
	ReadLine() (string, error)
	// WriteString sends s verbatim.
	WriteString(s string) error
	Close() error
	RemoteAddr() string
	Transport() string
}

type tcpLineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewTCPLineConn wraps a stream connection. Lines longer than maxLine bytes
// make ReadLine fail with bufio.ErrTooLong.
func NewTCPLineConn(conn net.Conn, maxLine int, writeTimeout time.Duration) LineConn {
	scanner := bufio.NewScanner(conn)
	// room for the terminator ("\r\n") on a line of exactly maxLine bytes
	limit := maxLine + 2
	scanner.Buffer(make([]byte, 0, min(limit, 4096)), limit)

	return &tcpLineConn{
		conn:         conn,
		scanner:      scanner,
		writeTimeout: writeTimeout,
	}
}

func (c *tcpLineConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (c *tcpLineConn) WriteString(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.conn, s)
	return err
}

func (c *tcpLineConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpLineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *tcpLineConn) Transport() string { return TransportTCP }

// wsLineConn carries the line protocol over WebSocket text frames. A frame may
// hold several newline-separated lines; each server string is one frame.
type wsLineConn struct {
	conn         *websocket.Conn
	addr         string
	writeTimeout time.Duration
	pending      []string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketLineConn wraps an upgraded WebSocket connection.
func NewWebSocketLineConn(conn *websocket.Conn, addr string, maxLine int, writeTimeout time.Duration) LineConn {
	conn.SetReadLimit(int64(maxLine) + 2)
	return &wsLineConn{
		conn:         conn,
		addr:         addr,
		writeTimeout: writeTimeout,
	}
}

func (c *wsLineConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		c.pending = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsLineConn) WriteString(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// Close sends a best-effort close frame before closing the socket.
func (c *wsLineConn) Close() error {
	c.closeOnce.Do(func() {
		// WriteControl may run concurrently with WriteMessage.
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsLineConn) RemoteAddr() string { return c.addr }

func (c *wsLineConn) Transport() string { return TransportWebSocket }
