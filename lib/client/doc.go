// Package client implements the nickname directory: a registry.Registry keyed
// by nickname whose values are the connected users. Nicknames are compared
// with the rfc1459 case mapping, so "Alice" and "ALICE" collide.
package client
