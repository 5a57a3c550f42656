// Package testhelpers provides common utilities for testing the GoChat server.
//
// It offers a line-protocol client for raw TCP connections, a frame-oriented
// client for the WebSocket gateway and small HTTP helpers shared by the
// integration tests.
package testhelpers

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every read a helper performs.
const DefaultTimeout = 5 * time.Second

// Fixed login strings, repeated here so tests assert on the wire bytes.
const (
	LoginBanner    = "Connected to the server .\nEnter username : "
	PasswordPrompt = "Enter password : "
	Welcome        = "Welcome to the chat server !\n"
	AuthFailed     = "Authentication failed .\n"
)

// TCPClient speaks the chat protocol over a raw TCP connection.
type TCPClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// DialTCP connects to addr and registers the connection for cleanup.
func DialTCP(t *testing.T, addr string) *TCPClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &TCPClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes line followed by a newline.
func (c *TCPClient) Send(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(c.t, err)
}

// Expect reads exactly len(want) bytes and requires them to equal want.
func (c *TCPClient) Expect(want string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	buf := make([]byte, len(want))
	n, err := io.ReadFull(c.reader, buf)
	require.NoError(c.t, err, "read so far: %q", buf[:n])
	require.Equal(c.t, want, string(buf))
}

// ReadExact fills buf from the connection.
func (c *TCPClient) ReadExact(buf []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	_, err := io.ReadFull(c.reader, buf)
	require.NoError(c.t, err)
}

// ExpectClosed requires the server to close the connection with no further
// output.
func (c *TCPClient) ExpectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	rest, err := io.ReadAll(c.reader)
	require.NoError(c.t, err)
	require.Empty(c.t, string(rest))
}

// WaitClosed discards output until the server closes the connection.
func (c *TCPClient) WaitClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	_, err := io.Copy(io.Discard, c.reader)
	require.NoError(c.t, err)
}

// Login answers both prompts and requires the welcome line.
func (c *TCPClient) Login(username, password string) {
	c.t.Helper()
	c.Expect(LoginBanner)
	c.Send(username)
	c.Expect(PasswordPrompt)
	c.Send(password)
	c.Expect(Welcome)
}

// Close closes the client side of the connection.
func (c *TCPClient) Close() {
	_ = c.conn.Close()
}

// WSClient speaks the chat protocol over the WebSocket gateway. Every server
// string arrives as one text frame.
type WSClient struct {
	t    *testing.T
	conn *websocket.Conn
}

// DialWebSocket connects to url with the given Origin header.
func DialWebSocket(t *testing.T, url, origin string) (*WSClient, *http.Response, error) {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: DefaultTimeout}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, resp, err
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &WSClient{t: t, conn: conn}, resp, nil
}

// Send writes line as one text frame.
func (c *WSClient) Send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(line)))
}

// Expect requires the next frame to equal want.
func (c *WSClient) Expect(want string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	messageType, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	require.Equal(c.t, websocket.TextMessage, messageType)
	require.Equal(c.t, want, string(data))
}

// ExpectClosed requires the next read to fail because the server closed.
func (c *WSClient) ExpectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))

	_, data, err := c.conn.ReadMessage()
	require.Error(c.t, err, "unexpected frame %q", data)
}

// Login answers both prompts and requires the welcome frame.
func (c *WSClient) Login(username, password string) {
	c.t.Helper()
	c.Expect(LoginBanner)
	c.Send(username)
	c.Expect(PasswordPrompt)
	c.Send(password)
	c.Expect(Welcome)
}

// Close sends a close frame and closes the connection.
func (c *WSClient) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// WebSocketURL converts an http:// test server URL into the ws:// gateway URL.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// MakeRequest performs an HTTP request with a short timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: DefaultTimeout}
	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}
