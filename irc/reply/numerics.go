package reply

import (
	"fmt"
)

// Code is a numeric reply code
type Code int

// String renders the code as three digits
func (c Code) String() string {
	return fmt.Sprintf("%03d", int(c))
}

const (
	RplWelcome  Code = 1
	RplYourHost Code = 2
	RplCreated  Code = 3
	RplMyInfo   Code = 4

	RplListEnd      Code = 323
	RplList         Code = 322
	RplNoTopic      Code = 331
	RplTopic        Code = 332
	RplTopicWhoTime Code = 333
	RplNamReply     Code = 353
	RplEndOfNames   Code = 366
	RplMOTD         Code = 372
	RplMOTDStart    Code = 375
	RplEndOfMOTD    Code = 376

	ErrNoSuchNick        Code = 401
	ErrNoSuchChannel     Code = 403
	ErrCannotSendToChan  Code = 404
	ErrTooManyChannels   Code = 405
	ErrNoRecipient       Code = 411
	ErrNoTextToSend      Code = 412
	ErrUnknownCommand    Code = 421
	ErrNoMOTD            Code = 422
	ErrNoNicknameGiven   Code = 431
	ErrErroneousNickname Code = 432
	ErrNicknameInUse     Code = 433
	ErrNotOnChannel      Code = 442
	ErrNotRegistered     Code = 451
	ErrNeedMoreParams    Code = 461
	ErrAlreadyRegistered Code = 462
)
