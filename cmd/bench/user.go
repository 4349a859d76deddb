package bench

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dIRC/lib/channel"
)

// benchUser is a simulated client that counts and discards every line
type benchUser struct {
	nick      string
	delivered *atomic.Int64

	mu       sync.Mutex
	channels []string
}

var _ channel.IUser = (*benchUser)(nil)

func newBenchUser(nick string, delivered *atomic.Int64) *benchUser {
	return &benchUser{nick: nick, delivered: delivered}
}

func (u *benchUser) Send(string) bool {
	u.delivered.Add(1)
	return true
}

func (u *benchUser) Nickname() string { return u.nick }

func (u *benchUser) Username() string { return u.nick }

func (u *benchUser) Host() string { return "bench.local" }

func (u *benchUser) AddChannel(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels = append(u.channels, name)
	return true
}

func (u *benchUser) RemoveChannel(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, ch := range u.channels {
		if ch == name {
			u.channels = append(u.channels[:i], u.channels[i+1:]...)
			return true
		}
	}
	return false
}

func (u *benchUser) JoinedChannels() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.channels...)
}

func (u *benchUser) ClearChannels() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels = nil
}
