package client

import (
	"errors"

	"github.com/ValentinKolb/dIRC/lib/channel"
	"github.com/ValentinKolb/dIRC/lib/registry"
	"github.com/ValentinKolb/dIRC/lib/trie"
)

var (
	// ErrErroneousNickname is returned for nicknames outside the nickname alphabet or too long
	ErrErroneousNickname = errors.New("erroneous nickname")
	// ErrNicknameInUse is returned if the nickname is registered by another user
	ErrNicknameInUse = errors.New("nickname is already in use")
	// ErrNoSuchNick is returned if no user is registered under the nickname
	ErrNoSuchNick = errors.New("no such nick")
	// ErrOutOfMemory is returned if the nickname trie budget is exhausted
	ErrOutOfMemory = registry.ErrOutOfMemory
)

// Options configures a Registry
type Options struct {
	// NickLen is the maximum nickname length (0 = unlimited)
	NickLen int
	// MaxNodes limits the node count of the nickname trie (0 = unlimited)
	MaxNodes int
}

// Registry maps nicknames (case-insensitive, rfc1459) to connected users.
type Registry struct {
	users   *registry.Registry[channel.IUser]
	nickLen int
}

// NewRegistry creates an empty nickname registry (opts may be nil)
func NewRegistry(opts *Options) *Registry {
	r := &Registry{}
	maxNodes := 0
	if opts != nil {
		r.nickLen = opts.NickLen
		maxNodes = opts.MaxNodes
	}
	r.users = registry.New[channel.IUser](trie.NicknameAlphabet, &registry.Options[channel.IUser]{
		MaxNodes: maxNodes,
	})
	return r
}

// ValidNickname reports whether nick may be registered. Nicknames must not
// start with a digit or '-'.
func (r *Registry) ValidNickname(nick string) bool {
	if len(nick) == 0 || (r.nickLen > 0 && len(nick) > r.nickLen) {
		return false
	}
	if c := nick[0]; (c >= '0' && c <= '9') || c == '-' {
		return false
	}
	for i := 0; i < len(nick); i++ {
		if !trie.NicknameAlphabet.IsValid(nick[i]) {
			return false
		}
	}
	return true
}

func (r *Registry) translate(err error) error {
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		return ErrNicknameInUse
	case errors.Is(err, registry.ErrInvalidKey):
		return ErrErroneousNickname
	default:
		return err
	}
}

// Register stores user under nick.
//
// Errors: ErrErroneousNickname, ErrNicknameInUse, ErrOutOfMemory.
func (r *Registry) Register(nick string, user channel.IUser) error {
	if !r.ValidNickname(nick) {
		return ErrErroneousNickname
	}
	return r.translate(r.users.Insert(nick, user))
}

// Unregister removes nick if it is registered to user
func (r *Registry) Unregister(nick string, user channel.IUser) bool {
	removed := false
	_, _ = r.users.FindAndExecuteExclusive(nick, func(u channel.IUser) error {
		if u == user {
			_, removed = r.users.RemoveNoLock(nick)
		}
		return nil
	}, nil)
	return removed
}

// Claim registers newNick for user in addition to the nickname user already
// holds. The old nickname stays reserved until the caller releases it with
// Unregister, so nobody can take it while the memberships of user are re-keyed.
// Claiming a nickname the user already holds (a case-only change) is a no-op.
//
// Errors: ErrErroneousNickname, ErrNicknameInUse, ErrOutOfMemory.
func (r *Registry) Claim(newNick string, user channel.IUser) error {
	if !r.ValidNickname(newNick) {
		return ErrErroneousNickname
	}

	_, err := r.users.FindAndExecuteExclusive(newNick,
		func(u channel.IUser) error {
			if u != user {
				return ErrNicknameInUse
			}
			return nil
		},
		func() error {
			return r.translate(r.users.InsertNoLock(newNick, user))
		},
	)
	return err
}

// SameNickname reports whether a and b address the same registration (rfc1459 case mapping)
func SameNickname(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if trie.FoldRFC1459(a[i]) != trie.FoldRFC1459(b[i]) {
			return false
		}
	}
	return true
}

// Lookup returns the user registered under nick
func (r *Registry) Lookup(nick string) (channel.IUser, bool) {
	return r.users.Lookup(nick)
}

// Send enqueues line to the user registered under nick.
//
// Errors: ErrNoSuchNick.
func (r *Registry) Send(nick, line string) error {
	found, _ := r.users.FindAndExecute(nick, func(u channel.IUser) error {
		u.Send(line)
		return nil
	}, nil)
	if !found {
		return ErrNoSuchNick
	}
	return nil
}

// ForEach visits every registered user in alphabet order of the nicknames
func (r *Registry) ForEach(visit func(user channel.IUser) bool) {
	r.users.ForEach(func(_ string, u channel.IUser) bool {
		return visit(u)
	})
}

// Len returns the number of registered nicknames
func (r *Registry) Len() int {
	return r.users.Len()
}
