// Package server exposes HTTP handlers for health checks and the built-in
// line protocol test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/Tyrowin/gochat/internal/logger"
)

// HealthHandler reports that the server process is up.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

// TestPageHandler serves a small browser console that speaks the chat line
// protocol over /ws. Each input line is sent as one text frame.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		logger.Debug("Error writing test page", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Console</title>
    <style>
        body { font-family: monospace; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 320px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            white-space: pre-wrap;
        }
        input[type="text"] { width: 420px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .sent { color: blue; }
        .note { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <h1>GoChat Console</h1>
    <p>Answer the username and password prompts, then try
    <code>/broadcast</code>, <code>/msg</code>, <code>/create_group</code>,
    <code>/join_group</code>, <code>/leave_group</code> and <code>/group_msg</code>.</p>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="lineInput" placeholder="Type a line..." disabled>
        <button id="sendButton" onclick="sendLine()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="log"></div>

    <script>
        let ws = null;
        const logDiv = document.getElementById('log');
        const lineInput = document.getElementById('lineInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function append(text, cls) {
            const span = document.createElement('span');
            if (cls) {
                span.className = cls;
            }
            span.textContent = text;
            logDiv.appendChild(span);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            lineInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                updateStatus(true);
                lineInput.focus();
            };
            ws.onmessage = function(event) {
                append(event.data);
            };
            ws.onclose = function() {
                append('\n[connection closed]\n', 'note');
                updateStatus(false);
                ws = null;
            };
            ws.onerror = function() {
                append('\n[connection error]\n', 'note');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendLine() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                const line = lineInput.value;
                ws.send(line);
                append(line + '\n', 'sent');
                lineInput.value = '';
            }
        }

        lineInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendLine();
            }
        });
    </script>
</body>
</html>`
