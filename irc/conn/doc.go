// Package conn holds the per-connection state of the IRC server. A Client
// owns its socket, a bounded outbound line queue with a writer goroutine and
// the registration state (nickname, username, joined channels).
package conn
