// Package cmd implements the command-line interface of the dIRC server.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the IRC server
//   - bench: In-process load generator for the channel directory
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dirc -help for a list of all commands.
package cmd
