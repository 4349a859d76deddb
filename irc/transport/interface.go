package transport

import (
	"net"

	"github.com/ValentinKolb/dIRC/irc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IConnector is the transport-specific part of the server: it creates the
// listener and prepares accepted connections.
type IConnector interface {
	// Listen creates a listener on config.Endpoint
	Listen(config common.ServerConfig) (net.Listener, error)
	// UpgradeConnection applies socket options to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
	// GetName returns the name of the transport type (e.g. "unix", "tcp")
	GetName() string
}

// RemoteHost returns the host part of the remote address of conn. Connections
// without a meaningful address (unix sockets, pipes) are reported as "localhost".
func RemoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return "localhost"
	}
	switch addr.Network() {
	case "tcp", "tcp4", "tcp6":
		host, _, err := net.SplitHostPort(addr.String())
		if err == nil {
			return host
		}
	}
	return "localhost"
}
