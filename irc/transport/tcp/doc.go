// Package tcp implements the TCP connector of the IRC server (the default
// transport, usually on port 6667).
package tcp
