// Package server implements the GoChat line-protocol chat server.
//
// A Server accepts TCP connections (and WebSocket upgrades carrying the same
// protocol) and runs one Session per connection. Sessions authenticate
// against a credential Verifier, register in the shared Directory and then
// execute commands until their connection fails. The Directory is the only
// state shared between sessions and is guarded by a single mutex; a
// goroutine holding a connection's write lock never waits for it.
package server
