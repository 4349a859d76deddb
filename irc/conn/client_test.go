package conn

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newPipeClient(t *testing.T, opts Options) (*Client, *bufio.Reader, net.Conn) {
	t.Helper()
	server, peer := net.Pipe()
	c := New(server, opts)
	t.Cleanup(func() {
		c.Kill()
		_ = peer.Close()
	})
	return c, bufio.NewReader(peer), peer
}

func readLine(t *testing.T, r *bufio.Reader, peer net.Conn) string {
	t.Helper()
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("Failed to read line: %v", err)
	}
	return line
}

func TestSendWritesLines(t *testing.T) {
	c, r, peer := newPipeClient(t, Options{SendQ: 16})

	for _, l := range []string{"PING a", "PING b", "PING c"} {
		if !c.Send(l) {
			t.Fatalf("Send(%q) failed", l)
		}
	}
	for _, want := range []string{"PING a\r\n", "PING b\r\n", "PING c\r\n"} {
		if got := readLine(t, r, peer); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestSendQExceeded(t *testing.T) {
	c, _, _ := newPipeClient(t, Options{SendQ: 2})

	// nobody reads from the peer, the writer blocks once its buffer is full
	dropped := false
	for i := 0; i < 100000 && !dropped; i++ {
		dropped = !c.Send("PRIVMSG #flood :x")
	}
	if !dropped {
		t.Fatal("Expected Send to fail once the sendq is full")
	}
	if !c.SendQExceeded() {
		t.Error("Expected SendQExceeded to be set")
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Writer did not exit after the connection was killed")
	}
	if c.Send("late") {
		t.Error("Send after kill should fail")
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	c, r, peer := newPipeClient(t, Options{SendQ: 16})

	c.Send("ERROR :Closing Link: bye")
	go c.Close(2 * time.Second)

	if got := readLine(t, r, peer); got != "ERROR :Closing Link: bye\r\n" {
		t.Errorf("got %q", got)
	}
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := r.ReadString('\n'); err != io.EOF {
		t.Errorf("Expected EOF after close, got %v", err)
	}
}

func TestJoinedChannels(t *testing.T) {
	c, _, _ := newPipeClient(t, Options{SendQ: 1, MaxChannels: 2})

	if !c.AddChannel("#a") || !c.AddChannel("#b") {
		t.Fatal("AddChannel failed below the limit")
	}
	if c.AddChannel("#c") {
		t.Error("AddChannel should fail at the limit")
	}

	joined := c.JoinedChannels()
	if diff := cmp.Diff([]string{"#a", "#b"}, joined); diff != "" {
		t.Errorf("JoinedChannels mismatch (-want +got):\n%s", diff)
	}
	joined[0] = "#mutated"
	if c.JoinedChannels()[0] != "#a" {
		t.Error("JoinedChannels must return a copy")
	}

	if !c.RemoveChannel("#a") || c.RemoveChannel("#a") {
		t.Error("RemoveChannel should succeed once")
	}
	if !c.AddChannel("#c") {
		t.Error("AddChannel should succeed after a removal")
	}

	c.ClearChannels()
	if len(c.JoinedChannels()) != 0 {
		t.Error("ClearChannels left channels behind")
	}
}

func TestRegistrationState(t *testing.T) {
	c, _, _ := newPipeClient(t, Options{SendQ: 1, Host: "abc.cloak"})

	if c.ID() == "" || c.Host() != "abc.cloak" {
		t.Errorf("unexpected id %q or host %q", c.ID(), c.Host())
	}
	c.SetNickname("alice")
	c.SetUser("al", "Alice Liddell")
	if c.Nickname() != "alice" || c.Username() != "al" || c.Realname() != "Alice Liddell" {
		t.Error("registration fields not stored")
	}
	if c.Registered() {
		t.Error("client should not be registered yet")
	}
	if !c.SetRegistered() || c.SetRegistered() {
		t.Error("SetRegistered should succeed exactly once")
	}
	if c.Idle() > time.Second {
		t.Errorf("unexpected idle time %v", c.Idle())
	}
}
