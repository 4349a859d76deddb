// Package unix implements a Unix domain socket connector for local clients
// and bouncers running on the same host.
package unix
