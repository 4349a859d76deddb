package channel

import (
	"time"

	"github.com/ValentinKolb/dIRC/lib/trie"
)

// --------------------------------------------------------------------------
// Member
// --------------------------------------------------------------------------

// MemberMode are the per-channel status flags of a member
type MemberMode uint8

const (
	MemberOperator MemberMode = 1 << iota
	MemberVoice
)

// Member associates a user with a channel. User is a non-owning reference.
type Member struct {
	User  IUser
	Modes MemberMode
}

// Prefix returns the names-list prefix of the member ("@", "+" or "")
func (m *Member) Prefix() string {
	switch {
	case m.Modes&MemberOperator != 0:
		return "@"
	case m.Modes&MemberVoice != 0:
		return "+"
	default:
		return ""
	}
}

// --------------------------------------------------------------------------
// Channel
// --------------------------------------------------------------------------

// Channel is a value of the channel directory. It owns its member trie and
// member records. It has no lock of its own: every access happens inside a
// directory operation and is serialized by the registry locks.
//
// A Channel with zero members is never observable, the operation that removes
// the last member also removes the channel from the directory.
type Channel struct {
	name        string // spelling used by the creator
	topic       string
	topicBy     string
	topicAt     time.Time
	modes       uint32
	members     *trie.Trie[*Member] // nickname -> member
	memberCount int
}

func newChannel(name string, memberMaxNodes int) *Channel {
	return &Channel{
		name:    name,
		members: trie.New[*Member](trie.NicknameAlphabet, &trie.Options{MaxNodes: memberMaxNodes}),
	}
}

// Name returns the channel name as spelled by its creator
func (ch *Channel) Name() string {
	return ch.name
}

// MemberCount returns the number of members
func (ch *Channel) MemberCount() int {
	return ch.memberCount
}

// Topic returns the current topic ("" if unset)
func (ch *Channel) Topic() string {
	return ch.topic
}

// addMember inserts user with the given modes. Returns ErrOutOfMemory if the
// member trie budget is exhausted (nothing changed in that case).
func (ch *Channel) addMember(user IUser, modes MemberMode) error {
	if err := ch.members.Insert(user.Nickname(), &Member{User: user, Modes: modes}); err != nil {
		return err
	}
	ch.memberCount++
	return nil
}

// removeMember removes the member with the given nickname
func (ch *Channel) removeMember(nick string) (*Member, bool) {
	m, ok := ch.members.Remove(nick)
	if ok {
		ch.memberCount--
	}
	return m, ok
}

// member returns the member record of user. A record stored under the
// nickname of user that belongs to another user does not count.
func (ch *Channel) member(user IUser) (*Member, bool) {
	m, ok := ch.members.Lookup(user.Nickname())
	if !ok || m.User != user {
		return nil, false
	}
	return m, true
}

func (ch *Channel) isMember(user IUser) bool {
	_, ok := ch.member(user)
	return ok
}

// removeMemberOf removes the member record of user (see member)
func (ch *Channel) removeMemberOf(user IUser) bool {
	if !ch.isMember(user) {
		return false
	}
	_, ok := ch.removeMember(user.Nickname())
	return ok
}

// broadcast sends line to every member except skip (may be nil)
func (ch *Channel) broadcast(line string, skip IUser) {
	ch.members.ForEach(func(_ string, m *Member) bool {
		if m.User != skip {
			m.User.Send(line)
		}
		return true
	})
}

// release drops the member trie
func (ch *Channel) release() {
	ch.members = nil
	ch.memberCount = 0
}
