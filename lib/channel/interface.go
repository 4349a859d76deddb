package channel

import (
	"time"
)

// --------------------------------------------------------------------------
// Collaborator Interfaces
// --------------------------------------------------------------------------

// IUser is a connected client as seen by the channel directory. The directory
// never owns a user, it only keeps non-owning references in the member lists.
type IUser interface {
	// Send enqueues an outbound line. It must never block. Returns false if the
	// line was dropped (queue full or connection closed).
	Send(line string) bool
	// Nickname returns the current nickname
	Nickname() string
	// Username returns the username given at registration
	Username() string
	// Host returns the display host (possibly cloaked)
	Host() string

	// AddChannel records a joined channel. Returns false if the per-user limit is reached.
	AddChannel(name string) bool
	// RemoveChannel forgets a joined channel. Returns false if it was not recorded.
	RemoveChannel(name string) bool
	// JoinedChannels returns a copy of the joined channel names
	JoinedChannels() []string
	// ClearChannels forgets all joined channels
	ClearChannels()
}

// IReplyFormatter renders wire-ready lines from structured facts. The directory
// decides who receives a line, the formatter decides what it looks like.
type IReplyFormatter interface {
	// Join is sent to the joiner and to every member of the channel
	Join(user IUser, channel string) string
	// Part is sent to the leaving user and every remaining member
	Part(user IUser, channel, reason string) string
	// Quit is sent once to every user sharing a channel with the quitting user
	Quit(user IUser, reason string) string
	// Nick announces a nickname change of user (Nickname() already returns the new nick)
	Nick(user IUser, oldNick string) string
	Privmsg(from IUser, target, text string) string
	Notice(from IUser, target, text string) string

	// NameReply renders one member of a names list
	NameReply(to IUser, channel string, member *Member) string
	EndOfNames(to IUser, channel string) string

	// Topic renders the topic of a channel, NoTopic the absence of one.
	// TopicWhoTime follows Topic and names who set it and when.
	// TopicChange announces a new topic set by user.
	Topic(to IUser, channel, topic string) string
	TopicWhoTime(to IUser, channel, nick string, at time.Time) string
	NoTopic(to IUser, channel string) string
	TopicChange(user IUser, channel, topic string) string

	ListEntry(to IUser, channel string, members int, topic string) string
	ListEnd(to IUser) string
}
