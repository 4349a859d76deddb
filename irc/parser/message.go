package parser

import (
	"errors"
	"strings"
)

const (
	// MaxLineLength is the maximum length of a line including CR LF
	MaxLineLength = 512
	// MaxParams is the maximum number of parameters of a message
	MaxParams = 15
)

var (
	// ErrEmptyLine is returned for lines without a command
	ErrEmptyLine = errors.New("empty line")
	// ErrLineTooLong is returned for lines exceeding MaxLineLength
	ErrLineTooLong = errors.New("line too long")
	// ErrIllegalCharacter is returned for lines containing CR, LF or NUL before the line terminator
	ErrIllegalCharacter = errors.New("illegal character in line")
)

// Message is one parsed IRC line: [":" prefix SPACE] command [params] [":" trailing]
type Message struct {
	Prefix  string
	Command string // upper case
	Params  []string
}

// Param returns parameter i or "" if it does not exist
func (m *Message) Param(i int) string {
	if i < len(m.Params) {
		return m.Params[i]
	}
	return ""
}

// Parse parses a single line (with or without the trailing CR LF)
func Parse(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line)+2 > MaxLineLength {
		return nil, ErrLineTooLong
	}
	if strings.ContainsAny(line, "\r\n\x00") {
		return nil, ErrIllegalCharacter
	}

	m := &Message{}

	line = strings.TrimLeft(line, " ")
	if strings.HasPrefix(line, ":") {
		end := strings.IndexByte(line, ' ')
		if end < 0 {
			return nil, ErrEmptyLine
		}
		m.Prefix = line[1:end]
		line = strings.TrimLeft(line[end:], " ")
	}

	// command
	end := strings.IndexByte(line, ' ')
	if end < 0 {
		end = len(line)
	}
	m.Command = strings.ToUpper(line[:end])
	if m.Command == "" {
		return nil, ErrEmptyLine
	}
	line = line[end:]

	// params
	for {
		line = strings.TrimLeft(line, " ")
		if line == "" {
			break
		}
		if line[0] == ':' || len(m.Params) == MaxParams-1 {
			m.Params = append(m.Params, strings.TrimPrefix(line, ":"))
			break
		}
		end := strings.IndexByte(line, ' ')
		if end < 0 {
			end = len(line)
		}
		m.Params = append(m.Params, line[:end])
		line = line[end:]
	}

	return m, nil
}

// String renders the message as a line without CR LF. The last parameter is
// sent as trailing parameter if it is empty, contains a space or starts with ':'.
func (m *Message) String() string {
	var sb strings.Builder
	if m.Prefix != "" {
		sb.WriteByte(':')
		sb.WriteString(m.Prefix)
		sb.WriteByte(' ')
	}
	sb.WriteString(m.Command)
	for i, p := range m.Params {
		sb.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || strings.ContainsRune(p, ' ') || p[0] == ':') {
			sb.WriteByte(':')
		}
		sb.WriteString(p)
	}
	return sb.String()
}
