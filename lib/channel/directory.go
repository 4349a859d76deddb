package channel

import (
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/dIRC/lib/registry"
	"github.com/ValentinKolb/dIRC/lib/trie"
	"github.com/ValentinKolb/dIRC/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("channel")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Options configures a Directory
type Options struct {
	// MaxNodes limits the node count of the channel name trie (0 = unlimited)
	MaxNodes int
	// MemberMaxNodes limits the node count of the member trie of every channel (0 = unlimited)
	MemberMaxNodes int
	// ChannelLen is the maximum length of a channel name (0 = unlimited)
	ChannelLen int
}

// Info describes the state of a directory
type Info struct {
	Channels     int        `json:"channels"`
	Members      int        `json:"members"` // sum over all channels
	Distribution util.Stats `json:"distribution"`
	P99Members   float64    `json:"p99_members"` // 99th percentile of members per channel
}

// Directory is the channel directory: a registry keyed by channel name whose
// values are channels. Operations that change membership (Join, Part, Quit,
// ChangeNick) run exclusively, i.e. serialized against every other directory
// operation, which makes create-on-demand and destroy-on-empty atomic.
// Read-mostly operations (Message, Notice, Names, topics) only lock the channel
// concerned and run in parallel for different channels.
//
// Outbound lines are only enqueued (IUser.Send), no operation ever writes to a
// connection while holding a lock.
type Directory struct {
	channels *registry.Registry[*Channel]
	format   IReplyFormatter
	opts     Options
}

// NewDirectory creates an empty channel directory (opts may be nil)
func NewDirectory(format IReplyFormatter, opts *Options) *Directory {
	d := &Directory{
		format: format,
	}
	if opts != nil {
		d.opts = *opts
	}
	d.channels = registry.New[*Channel](trie.ChannelAlphabet, &registry.Options[*Channel]{
		Destructor: (*Channel).release,
		MaxNodes:   d.opts.MaxNodes,
	})
	return d
}

// validName reports whether name is a well-formed channel name
func (d *Directory) validName(name string) bool {
	if len(name) < 2 || (name[0] != '#' && name[0] != '&') {
		return false
	}
	if d.opts.ChannelLen > 0 && len(name) > d.opts.ChannelLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !trie.ChannelAlphabet.IsValid(name[i]) {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Membership
// --------------------------------------------------------------------------

// Join adds user to the channel, creating it if it does not exist. The creator
// becomes channel operator. On success the joiner receives the JOIN
// confirmation, the topic (if set) and the names list, every other member the
// JOIN notification.
//
// Errors: RetCInvalidName, RetCAlreadyOnChannel, RetCTooManyChannels, RetCOutOfMemory,
// RetCNickCollision (a member record under the same nickname belongs to another user).
// On error nothing has changed.
func (d *Directory) Join(user IUser, name string) error {
	if !d.validName(name) {
		return NewError(RetCInvalidName, name, "invalid channel name")
	}
	nick := user.Nickname()

	_, err := d.channels.FindAndExecuteExclusive(name,
		func(ch *Channel) error {
			if m, ok := ch.members.Lookup(nick); ok {
				if m.User == user {
					return NewError(RetCAlreadyOnChannel, ch.name, "already on channel")
				}
				return NewError(RetCNickCollision, ch.name, "nickname is held by another member")
			}
			if !user.AddChannel(ch.name) {
				return NewError(RetCTooManyChannels, ch.name, "too many channels")
			}
			if err := ch.addMember(user, 0); err != nil {
				user.RemoveChannel(ch.name)
				return fromRegistry(err, ch.name)
			}
			d.acknowledgeJoin(user, ch)
			return nil
		},
		func() error {
			if !user.AddChannel(name) {
				return NewError(RetCTooManyChannels, name, "too many channels")
			}
			ch := newChannel(name, d.opts.MemberMaxNodes)
			if err := ch.addMember(user, MemberOperator); err != nil {
				user.RemoveChannel(name)
				return fromRegistry(err, name)
			}
			if err := d.channels.InsertNoLock(name, ch); err != nil {
				ch.release()
				user.RemoveChannel(name)
				return fromRegistry(err, name)
			}
			Logger.Debugf("channel %s created by %s", name, nick)
			d.acknowledgeJoin(user, ch)
			return nil
		},
	)
	return err
}

func (d *Directory) acknowledgeJoin(user IUser, ch *Channel) {
	// the joiner is a member already and receives the same line as everybody else
	ch.broadcast(d.format.Join(user, ch.name), nil)
	if ch.topic != "" {
		d.sendTopic(user, ch)
	}
	d.sendNames(user, ch)
}

// leaveNoLock removes user from ch, calls notify for every remaining member and
// drops the channel from the directory if it became empty. Returns false if
// user was not a member. Must only be called from an exclusive callback for key.
func (d *Directory) leaveNoLock(user IUser, key string, ch *Channel, notify func(m *Member)) bool {
	if !ch.removeMemberOf(user) {
		return false
	}
	user.RemoveChannel(ch.name)

	ch.members.ForEach(func(_ string, m *Member) bool {
		notify(m)
		return true
	})

	if ch.memberCount == 0 {
		d.channels.RemoveNoLock(key)
		Logger.Debugf("channel %s destroyed", ch.name)
		ch.release()
	}
	return true
}

// Part removes user from the channel. The PART line is sent to the user and
// every remaining member. The channel is destroyed when its last member leaves.
//
// Errors: RetCNotOnChannel (also if the channel does not exist).
func (d *Directory) Part(user IUser, name, reason string) error {
	_, err := d.channels.FindAndExecuteExclusive(name,
		func(ch *Channel) error {
			line := d.format.Part(user, ch.name, reason)
			if !d.leaveNoLock(user, name, ch, func(m *Member) { m.User.Send(line) }) {
				return NewError(RetCNotOnChannel, ch.name, "not on channel")
			}
			user.Send(line)
			return nil
		},
		func() error {
			return NewError(RetCNotOnChannel, name, "not on channel")
		},
	)
	return err
}

// Quit removes user from every channel it has joined and clears its joined
// channel list. Every user sharing at least one channel receives the QUIT line
// exactly once. Channels that vanished in the meantime are skipped.
func (d *Directory) Quit(user IUser, reason string) {
	line := d.format.Quit(user, reason)
	notified := make(map[IUser]struct{})

	for _, name := range user.JoinedChannels() {
		_, _ = d.channels.FindAndExecuteExclusive(name, func(ch *Channel) error {
			d.leaveNoLock(user, name, ch, func(m *Member) {
				if _, ok := notified[m.User]; ok {
					return
				}
				notified[m.User] = struct{}{}
				m.User.Send(line)
			})
			return nil
		}, nil)
	}

	user.ClearChannels()
}

// PartAll parts user from every joined channel with the given reason (JOIN 0)
func (d *Directory) PartAll(user IUser, reason string) {
	for _, name := range user.JoinedChannels() {
		_ = d.Part(user, name, reason)
	}
}

// ChangeNick re-keys the memberships of user after a nickname change.
// user.Nickname() must already return the new nickname. Every user sharing a
// channel receives the NICK line once, the user itself receives nothing.
//
// Errors: RetCOutOfMemory if a member trie could not hold the new nickname,
// RetCNickCollision if the new nickname is the key of another user's membership.
// The membership in that channel keeps the old nickname, all other channels are updated.
func (d *Directory) ChangeNick(user IUser, oldNick string) error {
	line := d.format.Nick(user, oldNick)
	notified := map[IUser]struct{}{user: {}}
	var failed error

	for _, name := range user.JoinedChannels() {
		_, err := d.channels.FindAndExecuteExclusive(name, func(ch *Channel) error {
			m, ok := ch.members.Lookup(oldNick)
			if !ok || m.User != user {
				return nil
			}
			if other, taken := ch.members.Lookup(user.Nickname()); taken && other.User != user {
				return NewError(RetCNickCollision, ch.name, "nickname is held by another member")
			}
			ch.members.Remove(oldNick)
			if err := ch.members.Insert(user.Nickname(), m); err != nil {
				// the old nickname fits into the nodes just freed
				_ = ch.members.Insert(oldNick, m)
				return fromRegistry(err, ch.name)
			}
			ch.members.ForEach(func(_ string, peer *Member) bool {
				if _, ok := notified[peer.User]; !ok {
					notified[peer.User] = struct{}{}
					peer.User.Send(line)
				}
				return true
			})
			return nil
		}, nil)
		if err != nil {
			Logger.Warningf("nick change %s -> %s failed in %s: %v", oldNick, user.Nickname(), name, err)
			if failed == nil {
				failed = err
			}
		}
	}
	return failed
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// Message relays a PRIVMSG to every member except the sender. The sender does
// not need to be a member.
//
// Errors: RetCNoSuchChannel.
func (d *Directory) Message(from IUser, name, text string) error {
	found, _ := d.channels.FindAndExecute(name, func(ch *Channel) error {
		ch.broadcast(d.format.Privmsg(from, ch.name, text), from)
		return nil
	}, nil)
	if !found {
		return NewError(RetCNoSuchChannel, name, "no such channel")
	}
	return nil
}

// Notice relays a NOTICE like Message does. Callers must not send automatic
// replies for a failed notice.
func (d *Directory) Notice(from IUser, name, text string) error {
	found, _ := d.channels.FindAndExecute(name, func(ch *Channel) error {
		ch.broadcast(d.format.Notice(from, ch.name, text), from)
		return nil
	}, nil)
	if !found {
		return NewError(RetCNoSuchChannel, name, "no such channel")
	}
	return nil
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

func (d *Directory) sendTopic(to IUser, ch *Channel) {
	to.Send(d.format.Topic(to, ch.name, ch.topic))
	to.Send(d.format.TopicWhoTime(to, ch.name, ch.topicBy, ch.topicAt))
}

func (d *Directory) sendNames(to IUser, ch *Channel) {
	ch.members.ForEach(func(_ string, m *Member) bool {
		to.Send(d.format.NameReply(to, ch.name, m))
		return true
	})
	to.Send(d.format.EndOfNames(to, ch.name))
}

// Names sends the names list of a channel to requester, one line per member
// in alphabet order followed by the end marker. For an unknown channel only
// the end marker is sent.
func (d *Directory) Names(requester IUser, name string) {
	found, _ := d.channels.FindAndExecute(name, func(ch *Channel) error {
		d.sendNames(requester, ch)
		return nil
	}, nil)
	if !found {
		requester.Send(d.format.EndOfNames(requester, name))
	}
}

// GetTopic sends the topic (or the absence of one) of a channel to user.
//
// Errors: RetCNoSuchChannel.
func (d *Directory) GetTopic(user IUser, name string) error {
	found, _ := d.channels.FindAndExecute(name, func(ch *Channel) error {
		if ch.topic == "" {
			user.Send(d.format.NoTopic(user, ch.name))
		} else {
			d.sendTopic(user, ch)
		}
		return nil
	}, nil)
	if !found {
		return NewError(RetCNoSuchChannel, name, "no such channel")
	}
	return nil
}

// SetTopic changes the topic of a channel and announces it to every member.
// Only members may change the topic. The empty topic clears it.
//
// Errors: RetCNoSuchChannel, RetCNotOnChannel.
func (d *Directory) SetTopic(user IUser, name, topic string) error {
	found, err := d.channels.FindAndExecute(name, func(ch *Channel) error {
		if !ch.isMember(user) {
			return NewError(RetCNotOnChannel, ch.name, "not on channel")
		}
		ch.topic = topic
		ch.topicBy = user.Nickname()
		ch.topicAt = time.Now()
		ch.broadcast(d.format.TopicChange(user, ch.name, topic), nil)
		return nil
	}, nil)
	if !found {
		return NewError(RetCNoSuchChannel, name, "no such channel")
	}
	return err
}

// ListAll sends one line per channel (name, member count, topic) followed by
// the end marker. Channels created or destroyed concurrently may or may not
// show up.
func (d *Directory) ListAll(requester IUser) {
	d.channels.ForEach(func(_ string, ch *Channel) bool {
		requester.Send(d.format.ListEntry(requester, ch.name, ch.memberCount, ch.topic))
		return true
	})
	requester.Send(d.format.ListEnd(requester))
}

// List is ListAll restricted by mask. A mask ending in '*' matches every
// channel starting with the part before it, any other mask one channel exactly.
// The empty mask lists everything.
func (d *Directory) List(requester IUser, mask string) {
	if mask == "" || mask == "*" {
		d.ListAll(requester)
		return
	}

	entry := func(ch *Channel) {
		requester.Send(d.format.ListEntry(requester, ch.name, ch.memberCount, ch.topic))
	}

	if prefix, ok := strings.CutSuffix(mask, "*"); ok {
		d.channels.PrefixSearch(prefix, d.opts.ChannelLen, func(_ string, ch *Channel) bool {
			entry(ch)
			return true
		})
	} else {
		_, _ = d.channels.FindAndExecute(mask, func(ch *Channel) error {
			entry(ch)
			return nil
		}, nil)
	}
	requester.Send(d.format.ListEnd(requester))
}

// MemberCount returns the member count of a channel and whether it exists
func (d *Directory) MemberCount(name string) (int, bool) {
	count := 0
	found, _ := d.channels.FindAndExecute(name, func(ch *Channel) error {
		count = ch.memberCount
		return nil
	}, nil)
	return count, found
}

// Len returns the number of channels
func (d *Directory) Len() int {
	return d.channels.Len()
}

// Info returns the number of channels and the distribution of members across them
func (d *Directory) Info() Info {
	counts := make([]float64, 0, 64)
	d.channels.ForEach(func(_ string, ch *Channel) bool {
		counts = append(counts, float64(ch.memberCount))
		return true
	})
	sort.Float64s(counts)

	stats := util.NewStats(counts)
	return Info{
		Channels:     len(counts),
		Members:      int(stats.Sum),
		Distribution: stats,
		P99Members:   util.Percentile(counts, 99),
	}
}

// Close destroys every channel. No other goroutine may use the directory
// during or after Close.
func (d *Directory) Close() {
	n := d.channels.Len()
	d.channels.Destroy(true)
	Logger.Infof("channel directory closed (%d channels)", n)
}
