// Package common holds what every part of the IRC server shares: the server
// configuration and the logger setup.
//
// Logging uses the logger facade of dragonboat. Every package declares its own
// named logger (var Logger = logger.GetLogger("...")) and InitLoggers installs
// the custom factory and applies the configured level to all of them.
package common
