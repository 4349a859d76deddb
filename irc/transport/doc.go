// Package transport defines how the IRC server obtains connections. A
// connector creates the listener for one transport type and tunes accepted
// connections. Implementations live in the tcp and unix subpackages.
package transport
