package server

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPLineConnReadsLines(t *testing.T) {
	client, srv := net.Pipe()
	defer func() { _ = client.Close() }()

	conn := NewTCPLineConn(srv, 64, time.Second)
	defer func() { _ = conn.Close() }()

	go func() {
		_, _ = io.WriteString(client, "first\r\nsecond\n\nlast")
		_ = client.Close()
	}()

	for _, want := range []string{"first", "second", "", "last"} {
		line, err := conn.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTCPLineConnRejectsLongLines(t *testing.T) {
	client, srv := net.Pipe()
	defer func() { _ = client.Close() }()

	conn := NewTCPLineConn(srv, 16, time.Second)
	defer func() { _ = conn.Close() }()

	go func() {
		_, _ = io.WriteString(client, strings.Repeat("x", 16)+"\n"+strings.Repeat("y", 100)+"\n")
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 16), line)

	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestTCPLineConnWriteAndClose(t *testing.T) {
	client, srv := net.Pipe()
	defer func() { _ = client.Close() }()

	conn := NewTCPLineConn(srv, 64, time.Second)
	assert.Equal(t, TransportTCP, conn.Transport())

	go func() {
		_ = conn.WriteString("Welcome to the chat server !\n")
	}()
	buf := make([]byte, len("Welcome to the chat server !\n"))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the chat server !\n", string(buf))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close is idempotent")
	assert.Error(t, conn.WriteString("late"))
}

func TestTCPLineConnWriteTimeout(t *testing.T) {
	client, srv := net.Pipe()
	defer func() { _ = client.Close() }()

	conn := NewTCPLineConn(srv, 64, 20*time.Millisecond)
	defer func() { _ = conn.Close() }()

	// Nobody reads the client side, so the write must give up.
	err := conn.WriteString("stuck\n")
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}

func TestWebSocketLineConn(t *testing.T) {
	accepted := make(chan LineConn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- NewWebSocketLineConn(ws, r.RemoteAddr, 32, time.Second)
	}))
	defer ts.Close()

	client, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = client.Close() }()

	var conn LineConn
	select {
	case conn = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted the upgrade")
	}
	defer func() { _ = conn.Close() }()
	assert.Equal(t, TransportWebSocket, conn.Transport())

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("alice")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("one\ntwo\n")))

	for _, want := range []string{"alice", "one", "two"} {
		line, err := conn.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}

	require.NoError(t, conn.WriteString("Enter password : "))
	messageType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)
	assert.Equal(t, "Enter password : ", string(data))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("z", 64))))
	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, websocket.ErrReadLimit)
}
