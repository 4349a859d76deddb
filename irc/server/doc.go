// Package server implements the IRC server: the accept loop, one read loop
// per connection, command dispatch to the channel directory and the nickname
// registry, ping timeouts and a Prometheus metrics endpoint.
//
// Every connection has its own goroutine reading lines. Outbound lines are
// only ever enqueued (see conn.Client), so a slow client never blocks the
// goroutine of another one. Clients that do not read their lines are
// disconnected once their send queue is full.
//
// Supported commands: PASS (ignored), NICK, USER, PING, PONG, QUIT, JOIN
// (including JOIN 0), PART, PRIVMSG, NOTICE, NAMES, LIST, TOPIC and MOTD.
package server
