package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/ValentinKolb/dIRC/irc/common"
	"github.com/ValentinKolb/dIRC/irc/transport"
)

// connector implements transport.IConnector for Unix sockets
type connector struct{}

// NewConnector creates a Unix socket connector
func NewConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "unix"
}

func (c *connector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.Endpoint

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %v", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %v", err)
	}

	transport.Logger.Debugf("Listening on unix socket %s", socketPath)
	return listener, nil
}

func (c *connector) UpgradeConnection(net.Conn, common.ServerConfig) error {
	return nil
}
