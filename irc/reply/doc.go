// Package reply renders the lines the server sends to clients: relayed
// commands carrying the nick!user@host source of their originator and numeric
// replies carrying the server name. The Formatter implements
// channel.IReplyFormatter so the channel directory never builds wire text itself.
package reply
