package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dIRC/irc/common"
	"github.com/ValentinKolb/dIRC/irc/conn"
	"github.com/ValentinKolb/dIRC/irc/parser"
	"github.com/ValentinKolb/dIRC/irc/reply"
	"github.com/ValentinKolb/dIRC/irc/transport"
	"github.com/ValentinKolb/dIRC/lib/channel"
	"github.com/ValentinKolb/dIRC/lib/client"
	"github.com/ValentinKolb/dIRC/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("server")

// Version is reported in the welcome burst
const Version = "dirc-1.0.0"

const (
	// closeWait bounds how long queued lines are flushed before a connection is closed
	closeWait = 2 * time.Second
	// shutdownWait bounds the graceful shutdown of the metrics server
	shutdownWait = 5 * time.Second
)

// Server is a single IRC server: it accepts connections, parses their lines
// and dispatches the commands to the channel directory and the client registry.
type Server struct {
	config    common.ServerConfig
	connector transport.IConnector

	format   *reply.Formatter
	channels *channel.Directory
	clients  *client.Registry
	conns    *xsync.MapOf[string, *conn.Client] // connection id -> client
	metrics  *serverMetrics
	handlers sync.WaitGroup

	seed    uint64
	created time.Time
	motd    []string
}

// NewServer creates a server for the given configuration and connector
//
// Usage:
//
//	s := server.NewServer(*config, tcp.NewConnector())
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, connector transport.IConnector) *Server {
	format := reply.NewFormatter(config.ServerName)

	s := &Server{
		config:    config,
		connector: connector,
		format:    format,
		channels: channel.NewDirectory(format, &channel.Options{
			MaxNodes:       config.MaxNodes,
			MemberMaxNodes: config.MemberMaxNodes,
			ChannelLen:     config.ChannelLen,
		}),
		clients: client.NewRegistry(&client.Options{
			NickLen:  config.NickLen,
			MaxNodes: config.MaxNodes,
		}),
		conns:   xsync.NewMapOf[string, *conn.Client](),
		seed:    util.GenerateSeed(),
		created: time.Now(),
	}
	if config.MOTD != "" {
		s.motd = strings.Split(config.MOTD, "\n")
	}
	s.metrics = newServerMetrics(s)

	Logger.Infof("Created IRC Server")
	Logger.Infof(config.String())

	return s
}

// Serve listens on the configured endpoint and blocks until ctx is canceled
// or the listener fails. On return every connection is closed and the channel
// directory is destroyed.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return err
	}
	Logger.Infof("Starting %s server on %s", s.connector.GetName(), s.config.Endpoint)

	g, ctx := errgroup.WithContext(ctx)

	var metricsServer *http.Server
	if s.config.MetricsEndpoint != "" {
		metricsServer = &http.Server{Addr: s.config.MetricsEndpoint, Handler: s.metrics.handler()}
		g.Go(func() error {
			Logger.Infof("Serving metrics on %s/metrics", s.config.MetricsEndpoint)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// accept loop
	g.Go(func() error {
		for {
			nc, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				Logger.Errorf("Accept error: %v", err)
				continue
			}

			s.handlers.Add(1)
			go func() {
				defer s.handlers.Done()
				s.handleConnection(nc)
			}()
		}
	})

	// shutdown watcher
	g.Go(func() error {
		<-ctx.Done()
		_ = listener.Close()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	err = g.Wait()
	s.shutdown()
	return err
}

// shutdown disconnects every client, waits for the connection handlers and
// destroys the channel directory
func (s *Server) shutdown() {
	Logger.Infof("Shutting down, disconnecting %d clients", s.conns.Size())

	s.conns.Range(func(_ string, c *conn.Client) bool {
		c.Send(s.format.Error("Server shutting down"))
		go c.Close(closeWait)
		return true
	})
	s.handlers.Wait()

	s.channels.Close()
	Logger.Infof("Server stopped")
}

// --------------------------------------------------------------------------
// Connection handling
// --------------------------------------------------------------------------

// handleConnection runs the read loop of one connection and cleans up after it
func (s *Server) handleConnection(nc net.Conn) {
	if err := s.connector.UpgradeConnection(nc, s.config); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", nc.RemoteAddr(), err)
	}

	host := transport.RemoteHost(nc)
	if s.config.CloakHosts {
		host = util.CloakHost(host, s.seed)
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	c := conn.New(nc, conn.Options{
		SendQ:        s.config.SendQLength,
		MaxChannels:  s.config.MaxChannelsPerUser,
		Host:         host,
		WriteTimeout: timeout,
	})
	s.conns.Store(c.ID(), c)
	s.metrics.connections.Inc()
	Logger.Debugf("Accepted connection %s from %s", c.ID(), host)

	reason := s.readLoop(c, timeout)
	if c.SendQExceeded() {
		reason = "SendQ exceeded"
		s.metrics.sendQExceeded.Inc()
	}
	s.disconnect(c, reason)
}

// readLoop reads lines until the client quits or the connection fails. It
// returns the quit reason.
//
// After timeout without input the client is sent a PING. If it does not
// answer within another timeout it is disconnected.
func (s *Server) readLoop(c *conn.Client, timeout time.Duration) string {
	nc := c.Conn()
	r := bufio.NewReaderSize(nc, parser.MaxLineLength)

	var (
		partial    []byte
		discarding bool
		pinged     bool
	)

	for {
		if timeout > 0 {
			_ = nc.SetReadDeadline(time.Now().Add(timeout))
		}

		data, err := r.ReadSlice('\n')

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			// line too long, drop everything up to the next newline
			partial = partial[:0]
			discarding = true
			continue
		case isTimeout(err):
			if !discarding {
				partial = append(partial, data...)
			}
			if pinged {
				return "Ping timeout: " + timeout.String()
			}
			pinged = true
			c.Send(s.format.Ping())
			continue
		default:
			if c.SendQExceeded() {
				return "SendQ exceeded"
			}
			Logger.Debugf("Read from %s failed: %v", c.ID(), err)
			return "Connection closed"
		}

		if discarding {
			discarding = false
			partial = partial[:0]
			continue
		}

		line := data
		if len(partial) > 0 {
			line = append(partial, data...)
			partial = partial[:0]
		}

		c.Touch()
		pinged = false

		msg, err := parser.Parse(string(line))
		if err != nil {
			continue
		}
		if quit, reason := s.dispatch(c, msg); quit {
			return reason
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// disconnect removes c from every channel and the nickname registry and
// closes the connection
func (s *Server) disconnect(c *conn.Client, reason string) {
	if c.Registered() {
		s.channels.Quit(c, reason)
	}
	if nick := c.Nickname(); nick != "" {
		s.clients.Unregister(nick, c)
	}

	c.Send(s.format.Error(reason))
	c.Close(closeWait)

	s.conns.Delete(c.ID())
	Logger.Debugf("Closed connection %s (%s): %s", c.ID(), c.Nickname(), reason)
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Channels returns the channel directory of the server
func (s *Server) Channels() *channel.Directory {
	return s.channels
}

// Clients returns the nickname registry of the server
func (s *Server) Clients() *client.Registry {
	return s.clients
}

// Connections returns the number of open connections
func (s *Server) Connections() int {
	return s.conns.Size()
}
