package common

import (
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *ServerConfig)
		valid  bool
	}{
		{"Defaults", func(c *ServerConfig) {}, true},
		{"UnixTransport", func(c *ServerConfig) { c.Transport = "unix"; c.Endpoint = "/tmp/irc.sock" }, true},
		{"BadTransport", func(c *ServerConfig) { c.Transport = "http" }, false},
		{"EmptyEndpoint", func(c *ServerConfig) { c.Endpoint = "" }, false},
		{"ServerNameWithSpace", func(c *ServerConfig) { c.ServerName = "irc local" }, false},
		{"NoNickLen", func(c *ServerConfig) { c.NickLen = 0 }, false},
		{"NoChannels", func(c *ServerConfig) { c.MaxChannelsPerUser = 0 }, false},
		{"NoSendQ", func(c *ServerConfig) { c.SendQLength = 0 }, false},
		{"NegativeTimeout", func(c *ServerConfig) { c.TimeoutSecond = -1 }, false},
		{"NegativeMemberBudget", func(c *ServerConfig) { c.MemberMaxNodes = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultServerConfig()
			tt.modify(&c)
			if err := c.Validate(); (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, valid=%t", err, tt.valid)
			}
		})
	}
}

func TestString(t *testing.T) {
	c := DefaultServerConfig()
	c.MetricsEndpoint = "127.0.0.1:9100"
	s := c.String()

	for _, want := range []string{"IRC SERVER", "LIMITS", "METRICS", "LOGGING", "irc.local", "127.0.0.1:9100/metrics"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() does not contain %q:\n%s", want, s)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"INFO":  logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}
