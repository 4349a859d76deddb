// Package parser implements the IRC line grammar (RFC 1459 section 2.3.1):
// an optional prefix, a command and up to 15 parameters, the last of which may
// be a trailing parameter introduced by ':'.
package parser
