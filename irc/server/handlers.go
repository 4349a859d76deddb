package server

import (
	"errors"
	"strings"

	"github.com/ValentinKolb/dIRC/irc/conn"
	"github.com/ValentinKolb/dIRC/irc/parser"
	"github.com/ValentinKolb/dIRC/irc/reply"
	"github.com/ValentinKolb/dIRC/lib/channel"
	"github.com/ValentinKolb/dIRC/lib/client"
)

// reasonOutOfMemory is the quit reason of a client whose command exhausted a node budget
const reasonOutOfMemory = "Out of memory"

// commandHandler handles one command. It returns true (and a reason) if the
// connection has to be closed afterwards.
type commandHandler func(s *Server, c *conn.Client, msg *parser.Message) (quit bool, reason string)

// command describes a command known to the server
type command struct {
	handler    commandHandler
	minParams  int
	preRegOkay bool // may be used before the registration is complete
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"PASS":    {handler: handlePass, minParams: 1, preRegOkay: true},
		"NICK":    {handler: handleNick, preRegOkay: true},
		"USER":    {handler: handleUser, minParams: 4, preRegOkay: true},
		"PING":    {handler: handlePing, minParams: 1, preRegOkay: true},
		"PONG":    {handler: handlePong, preRegOkay: true},
		"QUIT":    {handler: handleQuit, preRegOkay: true},
		"JOIN":    {handler: handleJoin, minParams: 1},
		"PART":    {handler: handlePart, minParams: 1},
		"PRIVMSG": {handler: handlePrivmsg},
		"NOTICE":  {handler: handleNotice},
		"NAMES":   {handler: handleNames},
		"LIST":    {handler: handleList},
		"TOPIC":   {handler: handleTopic, minParams: 1},
		"MOTD":    {handler: handleMotd},
	}
}

// dispatch runs the handler of msg.Command
func (s *Server) dispatch(c *conn.Client, msg *parser.Message) (bool, string) {
	cmd, ok := commands[msg.Command]
	if !ok {
		if c.Registered() {
			c.Send(s.format.Numeric(c, reply.ErrUnknownCommand, msg.Command, "Unknown command"))
		}
		return false, ""
	}
	if !cmd.preRegOkay && !c.Registered() {
		c.Send(s.format.Numeric(c, reply.ErrNotRegistered, "You have not registered"))
		return false, ""
	}
	if len(msg.Params) < cmd.minParams {
		c.Send(s.format.Numeric(c, reply.ErrNeedMoreParams, msg.Command, "Not enough parameters"))
		return false, ""
	}
	return cmd.handler(s, c, msg)
}

// replyChannelError sends the numeric matching a directory error. Returns
// true if the error requires the connection to be closed.
func (s *Server) replyChannelError(c *conn.Client, err error, name string) bool {
	switch channel.Code(err) {
	case channel.RetCOK, channel.RetCAlreadyOnChannel:
	case channel.RetCInvalidName, channel.RetCNoSuchChannel:
		c.Send(s.format.Numeric(c, reply.ErrNoSuchChannel, name, "No such channel"))
	case channel.RetCNotOnChannel:
		c.Send(s.format.Numeric(c, reply.ErrNotOnChannel, name, "You're not on that channel"))
	case channel.RetCTooManyChannels:
		c.Send(s.format.Numeric(c, reply.ErrTooManyChannels, name, "You have joined too many channels"))
	case channel.RetCOutOfMemory:
		Logger.Warningf("Out of memory handling %s for %s", name, c.Nickname())
		return true
	default:
		Logger.Errorf("Unexpected error for %s on %s: %v", c.Nickname(), name, err)
	}
	return false
}

func isChannelName(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

func handlePass(s *Server, c *conn.Client, _ *parser.Message) (bool, string) {
	if c.Registered() {
		c.Send(s.format.Numeric(c, reply.ErrAlreadyRegistered, "You may not reregister"))
	}
	return false, ""
}

func handleNick(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	nick := msg.Param(0)
	if nick == "" {
		c.Send(s.format.Numeric(c, reply.ErrNoNicknameGiven, "No nickname given"))
		return false, ""
	}

	old := c.Nickname()
	if old == nick {
		return false, ""
	}

	// the old nickname stays reserved until the memberships are re-keyed
	var err error
	if old == "" {
		err = s.clients.Register(nick, c)
	} else {
		err = s.clients.Claim(nick, c)
	}

	switch {
	case errors.Is(err, client.ErrErroneousNickname):
		c.Send(s.format.Numeric(c, reply.ErrErroneousNickname, nick, "Erroneous nickname"))
		return false, ""
	case errors.Is(err, client.ErrNicknameInUse):
		c.Send(s.format.Numeric(c, reply.ErrNicknameInUse, nick, "Nickname is already in use"))
		return false, ""
	case err != nil:
		Logger.Warningf("Failed to register nickname %s: %v", nick, err)
		return true, reasonOutOfMemory
	}

	c.SetNickname(nick)

	if !c.Registered() {
		s.releaseNick(c, old, nick)
		s.tryRegister(c)
		return false, ""
	}

	c.Send(s.format.Nick(c, old))
	if err := s.channels.ChangeNick(c, old); err != nil {
		// move every membership back under the old nickname
		c.SetNickname(old)
		if err := s.channels.ChangeNick(c, nick); err != nil {
			Logger.Errorf("Failed to restore the memberships of %s: %v", old, err)
		}
		s.releaseNick(c, nick, old)
		return true, reasonOutOfMemory
	}
	s.releaseNick(c, old, nick)
	return false, ""
}

// releaseNick drops the registration of stale unless it is the same
// registration as kept (case-only change)
func (s *Server) releaseNick(c *conn.Client, stale, kept string) {
	if stale == "" || client.SameNickname(stale, kept) {
		return
	}
	s.clients.Unregister(stale, c)
}

func handleUser(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	if c.Registered() {
		c.Send(s.format.Numeric(c, reply.ErrAlreadyRegistered, "You may not reregister"))
		return false, ""
	}
	c.SetUser(msg.Param(0), msg.Param(3))
	s.tryRegister(c)
	return false, ""
}

// tryRegister completes the registration once NICK and USER were received
func (s *Server) tryRegister(c *conn.Client) {
	if c.Nickname() == "" || c.Username() == "" || !c.SetRegistered() {
		return
	}
	for _, l := range s.format.Welcome(c, s.config.Network, Version, s.created) {
		c.Send(l)
	}
	for _, l := range s.format.MOTD(c, s.motd) {
		c.Send(l)
	}
	Logger.Infof("Client %s registered from %s", c.Nickname(), c.Host())
}

func handlePing(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	c.Send(s.format.Pong(msg.Param(0)))
	return false, ""
}

func handlePong(*Server, *conn.Client, *parser.Message) (bool, string) {
	return false, ""
}

func handleQuit(_ *Server, _ *conn.Client, msg *parser.Message) (bool, string) {
	reason := msg.Param(0)
	if reason == "" {
		reason = "Client Quit"
	}
	return true, reason
}

// --------------------------------------------------------------------------
// Channels
// --------------------------------------------------------------------------

func handleJoin(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	if msg.Param(0) == "0" {
		s.channels.PartAll(c, "Left all channels")
		return false, ""
	}

	for _, name := range strings.Split(msg.Param(0), ",") {
		err := s.channels.Join(c, name)
		if err == nil {
			s.metrics.joins.Inc()
			continue
		}
		if s.replyChannelError(c, err, name) {
			return true, reasonOutOfMemory
		}
	}
	return false, ""
}

func handlePart(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	for _, name := range strings.Split(msg.Param(0), ",") {
		err := s.channels.Part(c, name, msg.Param(1))
		if err == nil {
			s.metrics.parts.Inc()
			continue
		}
		if s.replyChannelError(c, err, name) {
			return true, reasonOutOfMemory
		}
	}
	return false, ""
}

func handleNames(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	if msg.Param(0) == "" {
		c.Send(s.format.EndOfNames(c, "*"))
		return false, ""
	}
	for _, name := range strings.Split(msg.Param(0), ",") {
		s.channels.Names(c, name)
	}
	return false, ""
}

func handleList(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	s.channels.List(c, msg.Param(0))
	return false, ""
}

func handleTopic(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	name := msg.Param(0)
	var err error
	if len(msg.Params) < 2 {
		err = s.channels.GetTopic(c, name)
	} else {
		err = s.channels.SetTopic(c, name, msg.Param(1))
	}
	if s.replyChannelError(c, err, name) {
		return true, reasonOutOfMemory
	}
	return false, ""
}

func handleMotd(s *Server, c *conn.Client, _ *parser.Message) (bool, string) {
	for _, l := range s.format.MOTD(c, s.motd) {
		c.Send(l)
	}
	return false, ""
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

func handlePrivmsg(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	return s.relay(c, msg, false)
}

func handleNotice(s *Server, c *conn.Client, msg *parser.Message) (bool, string) {
	return s.relay(c, msg, true)
}

// relay delivers a PRIVMSG or NOTICE to channels and nicknames. A NOTICE never
// triggers an error reply.
func (s *Server) relay(c *conn.Client, msg *parser.Message, notice bool) (bool, string) {
	targets, text := msg.Param(0), msg.Param(1)
	if targets == "" {
		if !notice {
			c.Send(s.format.Numeric(c, reply.ErrNoRecipient, "No recipient given ("+msg.Command+")"))
		}
		return false, ""
	}
	if text == "" {
		if !notice {
			c.Send(s.format.Numeric(c, reply.ErrNoTextToSend, "No text to send"))
		}
		return false, ""
	}

	for _, target := range strings.Split(targets, ",") {
		var err error
		switch {
		case isChannelName(target) && notice:
			err = s.channels.Notice(c, target, text)
		case isChannelName(target):
			err = s.channels.Message(c, target, text)
		case notice:
			err = s.clients.Send(target, s.format.Notice(c, target, text))
		default:
			err = s.clients.Send(target, s.format.Privmsg(c, target, text))
		}

		if err == nil {
			s.metrics.messages.Inc()
			continue
		}
		if notice {
			continue
		}
		if errors.Is(err, client.ErrNoSuchNick) {
			c.Send(s.format.Numeric(c, reply.ErrNoSuchNick, target, "No such nick/channel"))
		} else if s.replyChannelError(c, err, target) {
			return true, reasonOutOfMemory
		}
	}
	return false, ""
}
