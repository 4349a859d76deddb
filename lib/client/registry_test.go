package client

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dIRC/lib/channel"
	"github.com/google/go-cmp/cmp"
)

// stubUser implements channel.IUser and only records lines
type stubUser struct {
	nick  string
	mu    sync.Mutex
	lines []string
}

func (u *stubUser) Send(line string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lines = append(u.lines, line)
	return true
}

func (u *stubUser) Nickname() string { return u.nick }
func (u *stubUser) Username() string { return "stub" }
func (u *stubUser) Host() string { return "localhost" }
func (u *stubUser) AddChannel(string) bool { return true }
func (u *stubUser) RemoveChannel(string) bool { return true }
func (u *stubUser) JoinedChannels() []string { return nil }
func (u *stubUser) ClearChannels() {}

var _ channel.IUser = (*stubUser)(nil)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(&Options{NickLen: 9})
	alice := &stubUser{nick: "Alice"}

	if err := r.Register("Alice", alice); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("ALICE", &stubUser{}); !errors.Is(err, ErrNicknameInUse) {
		t.Errorf("Expected ErrNicknameInUse, got %v", err)
	}

	tests := []string{"", "9lives", "-dash", "has space", "#chan", "waytoolongnick"}
	for _, nick := range tests {
		if err := r.Register(nick, &stubUser{}); !errors.Is(err, ErrErroneousNickname) {
			t.Errorf("Register(%q) = %v, want ErrErroneousNickname", nick, err)
		}
	}

	if u, ok := r.Lookup("alice"); !ok || u != alice {
		t.Errorf("Lookup failed")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 user, got %d", r.Len())
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(nil)
	alice := &stubUser{nick: "alice"}
	_ = r.Register("alice", alice)

	if r.Unregister("alice", &stubUser{}) {
		t.Errorf("Unregister must only remove the own registration")
	}
	if !r.Unregister("alice", alice) {
		t.Errorf("Unregister failed")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Errorf("Nickname must be free after Unregister")
	}
}

func TestClaim(t *testing.T) {
	r := NewRegistry(nil)
	alice := &stubUser{nick: "alice"}
	bob := &stubUser{nick: "bob"}
	_ = r.Register("alice", alice)
	_ = r.Register("bob", bob)

	if err := r.Claim("BOB", alice); !errors.Is(err, ErrNicknameInUse) {
		t.Errorf("Expected ErrNicknameInUse, got %v", err)
	}
	if err := r.Claim("ALICE", alice); err != nil {
		t.Errorf("Case change failed: %v", err)
	}
	if err := r.Claim("bad nick", alice); !errors.Is(err, ErrErroneousNickname) {
		t.Errorf("Expected ErrErroneousNickname, got %v", err)
	}

	if err := r.Claim("carol", alice); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	// the old nickname stays reserved until it is released
	if u, ok := r.Lookup("alice"); !ok || u != alice {
		t.Errorf("Old nickname must still point to the user")
	}
	if err := r.Register("alice", &stubUser{nick: "alice"}); !errors.Is(err, ErrNicknameInUse) {
		t.Errorf("Old nickname must not be available before it is released, got %v", err)
	}
	if u, ok := r.Lookup("carol"); !ok || u != alice {
		t.Errorf("New nickname must point to the user")
	}

	if !r.Unregister("alice", alice) {
		t.Fatalf("Releasing the old nickname failed")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Errorf("Old nickname must be free after it was released")
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 users, got %d", r.Len())
	}
}

func TestSameNickname(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"alice", "ALICE", true},
		{"nick[a]", "NICK{A}", true},
		{"a\\b", "a|b", true},
		{"alice", "alicia", false},
		{"bob", "bobby", false},
	}
	for _, tt := range tests {
		if got := SameNickname(tt.a, tt.b); got != tt.same {
			t.Errorf("SameNickname(%q, %q) = %t, want %t", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestSend(t *testing.T) {
	r := NewRegistry(nil)
	alice := &stubUser{nick: "alice"}
	_ = r.Register("alice", alice)

	if err := r.Send("ALICE", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := r.Send("nobody", "hello"); !errors.Is(err, ErrNoSuchNick) {
		t.Errorf("Expected ErrNoSuchNick, got %v", err)
	}
	if diff := cmp.Diff([]string{"hello"}, alice.lines); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
}

// TestConcurrentRegister verifies that exactly one of many racing registrations wins
func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry(nil)
	var wins atomic.Int32
	var wg sync.WaitGroup

	const n = 32
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			err := r.Register("contested", &stubUser{nick: fmt.Sprintf("u%d", i)})
			if err == nil {
				wins.Add(1)
			} else if !errors.Is(err, ErrNicknameInUse) {
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}
