package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// TCPConf holds socket options applied to accepted TCP connections
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm
	TCPNoDelay bool
	// TCPKeepAliveSec is the keep-alive period in seconds (0 = disabled)
	TCPKeepAliveSec int
}

// ServerConfig holds all configuration parameters of the IRC server.
type ServerConfig struct {
	// Identity
	ServerName string
	Network    string
	MOTD       string

	// Listener settings
	Endpoint  string
	Transport string // tcp or unix
	TCP       TCPConf

	// MetricsEndpoint is the address of the metrics http server (empty disables it)
	MetricsEndpoint string

	// Limits
	NickLen            int
	ChannelLen         int
	MaxChannelsPerUser int
	SendQLength        int // max undelivered lines per connection
	MaxNodes           int // node budget of the nickname and channel tries (0 = unlimited)
	MemberMaxNodes     int // node budget of the member trie of every channel (0 = unlimited)

	// TimeoutSecond is the idle time after which a PING is sent. A client that
	// does not answer within another TimeoutSecond is disconnected.
	TimeoutSecond int64

	// CloakHosts hides the client addresses behind a hash
	CloakHosts bool

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a configuration with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ServerName:         "irc.local",
		Network:            "dIRC",
		MOTD:               "Welcome!",
		Endpoint:           "0.0.0.0:6667",
		Transport:          "tcp",
		TCP:                TCPConf{TCPNoDelay: true},
		NickLen:            30,
		ChannelLen:         50,
		MaxChannelsPerUser: 20,
		SendQLength:        1024,
		TimeoutSecond:      120,
		LogLevel:           "info",
	}
}

// Validate checks the configuration for invalid values
func (c *ServerConfig) Validate() error {
	if c.ServerName == "" || strings.ContainsAny(c.ServerName, " :") {
		return fmt.Errorf("invalid server name %q", c.ServerName)
	}
	if c.Transport != "tcp" && c.Transport != "unix" {
		return fmt.Errorf("invalid transport %s (expected tcp or unix)", c.Transport)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.NickLen <= 0 || c.ChannelLen <= 1 {
		return fmt.Errorf("nick-len and channel-len must be positive")
	}
	if c.MaxChannelsPerUser <= 0 {
		return fmt.Errorf("max-channels must be positive")
	}
	if c.SendQLength <= 0 {
		return fmt.Errorf("sendq must be positive")
	}
	if c.MaxNodes < 0 || c.MemberMaxNodes < 0 {
		return fmt.Errorf("node budgets must not be negative")
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("IRC Server")
	addField("Server Name", c.ServerName)
	addField("Network", c.Network)
	addField("Endpoint", fmt.Sprintf("%s (%s)", c.Endpoint, c.Transport))
	if c.Transport == "tcp" {
		addField("TCP No Delay", fmt.Sprintf("%t", c.TCP.TCPNoDelay))
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	}
	addField("Ping Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Cloak Hosts", fmt.Sprintf("%t", c.CloakHosts))

	addSection("Limits")
	addField("Nick Length", fmt.Sprintf("%d", c.NickLen))
	addField("Channel Length", fmt.Sprintf("%d", c.ChannelLen))
	addField("Channels Per User", fmt.Sprintf("%d", c.MaxChannelsPerUser))
	addField("SendQ", fmt.Sprintf("%d lines", c.SendQLength))
	if c.MaxNodes > 0 {
		addField("Trie Node Budget", fmt.Sprintf("%d", c.MaxNodes))
	} else {
		addField("Trie Node Budget", "unlimited")
	}
	if c.MemberMaxNodes > 0 {
		addField("Member Node Budget", fmt.Sprintf("%d", c.MemberMaxNodes))
	} else {
		addField("Member Node Budget", "unlimited")
	}

	addSection("Metrics")
	if c.MetricsEndpoint != "" {
		addField("Endpoint", c.MetricsEndpoint+"/metrics")
	} else {
		addField("Endpoint", "disabled")
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
