package conn

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dIRC/lib/channel"
	"github.com/ValentinKolb/dIRC/lib/util"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("conn")

// Options configures a Client
type Options struct {
	// SendQ is the maximum number of undelivered lines. A client exceeding it is disconnected.
	SendQ int
	// MaxChannels is the maximum number of joined channels (0 = unlimited)
	MaxChannels int
	// Host is the display host of the client
	Host string
	// WriteTimeout bounds a single write to the socket (0 = none)
	WriteTimeout time.Duration
}

// Client is one connection to the server. It implements channel.IUser.
//
// Outbound lines go through a non-blocking queue drained by a writer
// goroutine, so Send may be called while holding directory locks.
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	id      string
	conn    net.Conn
	queue   *util.LineQueue
	host    string
	timeout time.Duration

	mu          sync.RWMutex
	nick        string
	user        string
	realname    string
	registered  bool
	channels    []string
	maxChannels int

	lastActive    atomic.Int64 // unix nano
	sendQExceeded atomic.Bool
	closeOnce     sync.Once
	done          chan struct{} // closed when the writer exits
}

var _ channel.IUser = (*Client)(nil)

// New wraps conn and starts the writer goroutine
func New(conn net.Conn, opts Options) *Client {
	c := &Client{
		id:          uuid.NewString(),
		conn:        conn,
		queue:       util.NewLineQueue(opts.SendQ),
		host:        opts.Host,
		timeout:     opts.WriteTimeout,
		maxChannels: opts.MaxChannels,
		done:        make(chan struct{}),
	}
	c.Touch()

	go c.writeLoop()

	return c
}

// writeLoop writes queued lines to the socket. The buffer is flushed whenever
// no further line is ready.
func (c *Client) writeLoop() {
	defer close(c.done)

	w := bufio.NewWriter(c.conn)
	recv := c.queue.Recv()

	fail := func(err error) {
		Logger.Debugf("Write to %s failed: %v", c.id, err)
		c.queue.Stop()
		_ = c.conn.Close()
	}

	for {
		var (
			line string
			ok   bool
		)
		select {
		case line, ok = <-recv:
		default:
			if err := w.Flush(); err != nil {
				fail(err)
				return
			}
			line, ok = <-recv
		}
		if !ok {
			break
		}

		if c.timeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
		}
		_, err := w.WriteString(line)
		if err == nil {
			_, err = w.WriteString("\r\n")
		}
		if err != nil {
			fail(err)
			return
		}
	}
	_ = w.Flush()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see channel.IUser)
// --------------------------------------------------------------------------

func (c *Client) Send(line string) bool {
	err := c.queue.Push(line)
	if err == nil {
		return true
	}
	if errors.Is(err, util.ErrQueueFull) && c.sendQExceeded.CompareAndSwap(false, true) {
		Logger.Warningf("SendQ exceeded for %s (%s), disconnecting", c.Nickname(), c.id)
		c.Kill()
	}
	return false
}

func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nick
}

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) Host() string {
	return c.host
}

func (c *Client) AddChannel(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxChannels > 0 && len(c.channels) >= c.maxChannels {
		return false
	}
	c.channels = append(c.channels, name)
	return true
}

func (c *Client) RemoveChannel(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.channels {
		if ch == name {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Client) JoinedChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.channels))
	copy(out, c.channels)
	return out
}

func (c *Client) ClearChannels() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = nil
}

// --------------------------------------------------------------------------
// Connection state
// --------------------------------------------------------------------------

// ID returns the unique connection id
func (c *Client) ID() string {
	return c.id
}

// Conn returns the underlying connection
func (c *Client) Conn() net.Conn {
	return c.conn
}

// Realname returns the real name given with USER
func (c *Client) Realname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realname
}

// SetNickname changes the nickname. The caller keeps the nickname registry in sync.
func (c *Client) SetNickname(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nick = nick
}

// SetUser stores the USER parameters
func (c *Client) SetUser(user, realname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.realname = realname
}

// Registered reports whether the registration (NICK + USER) is complete
func (c *Client) Registered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered
}

// SetRegistered marks the registration as complete. Returns false if it already was.
func (c *Client) SetRegistered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return false
	}
	c.registered = true
	return true
}

// Touch records activity of the client
func (c *Client) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// Idle returns the time since the last activity
func (c *Client) Idle() time.Duration {
	return time.Since(time.Unix(0, c.lastActive.Load()))
}

// SendQExceeded reports whether the client was dropped for not reading its lines
func (c *Client) SendQExceeded() bool {
	return c.sendQExceeded.Load()
}

// Pending returns the number of queued outbound lines
func (c *Client) Pending() int {
	return c.queue.Len()
}

// Done is closed once the writer goroutine exited
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops accepting lines, waits up to wait for the queued lines to be
// written and closes the connection.
func (c *Client) Close(wait time.Duration) {
	c.closeOnce.Do(func() {
		c.queue.Close()
		select {
		case <-c.done:
		case <-time.After(wait):
			c.queue.Stop()
		}
		_ = c.conn.Close()
	})
}

// Kill discards queued lines and closes the connection immediately. It never
// blocks and is safe to call while holding directory locks.
func (c *Client) Kill() {
	c.queue.Stop()
	_ = c.conn.Close()
}
