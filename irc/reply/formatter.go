package reply

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/dIRC/irc/parser"
	"github.com/ValentinKolb/dIRC/lib/channel"
)

// Formatter renders wire-ready lines (without CR LF). It implements
// channel.IReplyFormatter and provides the numeric replies of the server.
type Formatter struct {
	server string
}

var _ channel.IReplyFormatter = (*Formatter)(nil)

// NewFormatter creates a formatter for replies originating from server
func NewFormatter(server string) *Formatter {
	return &Formatter{server: server}
}

// Source returns the nick!user@host source of user
func Source(user channel.IUser) string {
	return user.Nickname() + "!" + user.Username() + "@" + user.Host()
}

// target returns the nickname used as first numeric parameter ("*" before registration)
func target(to channel.IUser) string {
	if nick := to.Nickname(); nick != "" {
		return nick
	}
	return "*"
}

func line(prefix, command string, params ...string) string {
	m := parser.Message{Prefix: prefix, Command: command, Params: params}
	return m.String()
}

// Numeric renders a numeric reply from the server to a user
func (f *Formatter) Numeric(to channel.IUser, code Code, params ...string) string {
	return line(f.server, code.String(), append([]string{target(to)}, params...)...)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see channel.IReplyFormatter)
// --------------------------------------------------------------------------

func (f *Formatter) Join(user channel.IUser, ch string) string {
	return line(Source(user), "JOIN", ch)
}

func (f *Formatter) Part(user channel.IUser, ch, reason string) string {
	if reason == "" {
		return line(Source(user), "PART", ch)
	}
	return line(Source(user), "PART", ch, reason)
}

func (f *Formatter) Quit(user channel.IUser, reason string) string {
	return line(Source(user), "QUIT", "Quit: "+reason)
}

func (f *Formatter) Nick(user channel.IUser, oldNick string) string {
	return line(oldNick+"!"+user.Username()+"@"+user.Host(), "NICK", user.Nickname())
}

func (f *Formatter) Privmsg(from channel.IUser, to, text string) string {
	return line(Source(from), "PRIVMSG", to, text)
}

func (f *Formatter) Notice(from channel.IUser, to, text string) string {
	return line(Source(from), "NOTICE", to, text)
}

func (f *Formatter) NameReply(to channel.IUser, ch string, member *channel.Member) string {
	return f.Numeric(to, RplNamReply, "=", ch, member.Prefix()+member.User.Nickname())
}

func (f *Formatter) EndOfNames(to channel.IUser, ch string) string {
	return f.Numeric(to, RplEndOfNames, ch, "End of /NAMES list")
}

func (f *Formatter) Topic(to channel.IUser, ch, topic string) string {
	return f.Numeric(to, RplTopic, ch, topic)
}

func (f *Formatter) TopicWhoTime(to channel.IUser, ch, nick string, at time.Time) string {
	return f.Numeric(to, RplTopicWhoTime, ch, nick, strconv.FormatInt(at.Unix(), 10))
}

func (f *Formatter) NoTopic(to channel.IUser, ch string) string {
	return f.Numeric(to, RplNoTopic, ch, "No topic is set")
}

func (f *Formatter) TopicChange(user channel.IUser, ch, topic string) string {
	return line(Source(user), "TOPIC", ch, topic)
}

func (f *Formatter) ListEntry(to channel.IUser, ch string, members int, topic string) string {
	return f.Numeric(to, RplList, ch, strconv.Itoa(members), topic)
}

func (f *Formatter) ListEnd(to channel.IUser) string {
	return f.Numeric(to, RplListEnd, "End of /LIST")
}

// --------------------------------------------------------------------------
// Server replies
// --------------------------------------------------------------------------

// Welcome renders the registration burst (001-004)
func (f *Formatter) Welcome(to channel.IUser, network, version string, created time.Time) []string {
	return []string{
		f.Numeric(to, RplWelcome, fmt.Sprintf("Welcome to the %s IRC Network %s", network, Source(to))),
		f.Numeric(to, RplYourHost, fmt.Sprintf("Your host is %s, running version %s", f.server, version)),
		f.Numeric(to, RplCreated, "This server was created "+created.Format(time.RFC1123)),
		f.Numeric(to, RplMyInfo, f.server, version, "o", "ov"),
	}
}

// MOTD renders the message of the day, or ERR_NOMOTD if motd is empty
func (f *Formatter) MOTD(to channel.IUser, motd []string) []string {
	if len(motd) == 0 {
		return []string{f.Numeric(to, ErrNoMOTD, "MOTD File is missing")}
	}
	lines := make([]string, 0, len(motd)+2)
	lines = append(lines, f.Numeric(to, RplMOTDStart, "- "+f.server+" Message of the day - "))
	for _, l := range motd {
		lines = append(lines, f.Numeric(to, RplMOTD, "- "+l))
	}
	return append(lines, f.Numeric(to, RplEndOfMOTD, "End of /MOTD command"))
}

// Pong answers a PING
func (f *Formatter) Pong(token string) string {
	return line(f.server, "PONG", f.server, token)
}

// Ping checks whether a client is still alive
func (f *Formatter) Ping() string {
	return line("", "PING", f.server)
}

// Error renders an ERROR line, sent right before the server closes a connection
func (f *Formatter) Error(reason string) string {
	return line("", "ERROR", "Closing Link: "+reason)
}
