package channel

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dIRC/lib/registry"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by every directory operation. It wraps a
// return code (of type RetCode), the channel concerned and a message.
type Error struct {
	Code    RetCode
	Channel string
	Msg     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ChannelError (code %s) %s: %s", e.Code, e.Channel, e.Msg)
}

// NewError creates a new Error with the given code, channel and message.
func NewError(code RetCode, channel, msg string) *Error {
	return &Error{
		Code:    code,
		Channel: channel,
		Msg:     msg,
	}
}

// Code extracts the return code of err (RetCOK for nil, RetCInternal for foreign errors)
func Code(err error) RetCode {
	if err == nil {
		return RetCOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternal
}

// fromRegistry translates a registry error into the closed error set of the directory
func fromRegistry(err error, channel string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrInvalidKey):
		return NewError(RetCInvalidName, channel, "invalid channel name")
	case errors.Is(err, registry.ErrOutOfMemory):
		return NewError(RetCOutOfMemory, channel, "out of memory")
	case errors.Is(err, registry.ErrAlreadyExists):
		// only possible if the directory is modified behind its back
		return NewError(RetCInternal, channel, "channel already exists")
	default:
		return err
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode is a return code of a directory operation
type RetCode int

const (
	RetCOK RetCode = iota
	// RetCInternal indicates an unexpected error
	RetCInternal
	// RetCInvalidName indicates a malformed channel name, no state was changed
	RetCInvalidName
	// RetCOutOfMemory indicates that a budget was exhausted, every partial change was rolled back
	RetCOutOfMemory
	// RetCNotOnChannel indicates that the user is not a member of the channel
	RetCNotOnChannel
	// RetCNoSuchChannel indicates that the channel does not exist
	RetCNoSuchChannel
	// RetCTooManyChannels indicates that the user reached the per-user channel limit
	RetCTooManyChannels
	// RetCAlreadyOnChannel indicates that the user is already a member of the channel
	RetCAlreadyOnChannel
	// RetCNickCollision indicates that the nickname of the user is the key of another user's membership
	RetCNickCollision
)

func (c RetCode) String() string {
	switch c {
	case RetCOK:
		return "OK"
	case RetCInternal:
		return "Internal"
	case RetCInvalidName:
		return "InvalidName"
	case RetCOutOfMemory:
		return "OutOfMemory"
	case RetCNotOnChannel:
		return "NotOnChannel"
	case RetCNoSuchChannel:
		return "NoSuchChannel"
	case RetCTooManyChannels:
		return "TooManyChannels"
	case RetCAlreadyOnChannel:
		return "AlreadyOnChannel"
	case RetCNickCollision:
		return "NickCollision"
	default:
		return "Unknown"
	}
}
