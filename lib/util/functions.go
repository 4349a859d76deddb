package util

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for host cloaking
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fall back to the current time
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashString hashes a string with a seed using FNV-1a
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// CloakHost derives the display host for a remote address. The port (if any)
// is stripped, so every connection from the same host gets the same cloak.
func CloakHost(addr string, seed uint64) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return fmt.Sprintf("%016x.cloak", HashString(host, seed))
}
