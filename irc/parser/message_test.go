package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want *Message
	}{
		{"NICK alice", &Message{Command: "NICK", Params: []string{"alice"}}},
		{"nick alice\r\n", &Message{Command: "NICK", Params: []string{"alice"}}},
		{"PING", &Message{Command: "PING"}},
		{"USER alice 0 * :Alice Liddell", &Message{Command: "USER", Params: []string{"alice", "0", "*", "Alice Liddell"}}},
		{":bob!b@host PRIVMSG #go :hello :world", &Message{Prefix: "bob!b@host", Command: "PRIVMSG", Params: []string{"#go", "hello :world"}}},
		{"JOIN   #a,#b   key", &Message{Command: "JOIN", Params: []string{"#a,#b", "key"}}},
		{"TOPIC #go :", &Message{Command: "TOPIC", Params: []string{"#go", ""}}},
		{"A 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16", &Message{Command: "A", Params: []string{
			"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15 16"}}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.line)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.line, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{"", "   ", ":prefixonly", "\r\n"} {
		if _, err := Parse(line); !errors.Is(err, ErrEmptyLine) {
			t.Errorf("Parse(%q) = %v, want ErrEmptyLine", line, err)
		}
	}
	if _, err := Parse("PRIVMSG #a :" + strings.Repeat("x", 600)); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("Expected ErrLineTooLong, got %v", err)
	}

	// a bare CR would start a forged line at the receiving client
	for _, line := range []string{
		"PRIVMSG #x :hi\r:evil!x@y PRIVMSG victim :spoofed\r\n",
		"PRIVMSG #x :a\nb",
		"TOPIC #x :nul\x00byte\r\n",
	} {
		if _, err := Parse(line); !errors.Is(err, ErrIllegalCharacter) {
			t.Errorf("Parse(%q) = %v, want ErrIllegalCharacter", line, err)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Command: "PING", Params: []string{"irc.local"}}, "PING irc.local"},
		{Message{Prefix: "irc.local", Command: "001", Params: []string{"alice", "Welcome to IRC"}}, ":irc.local 001 alice :Welcome to IRC"},
		{Message{Command: "PART", Params: []string{"#go", ""}}, "PART #go :"},
		{Message{Command: "PRIVMSG", Params: []string{"#go", ":)"}}, "PRIVMSG #go ::)"},
	}
	for _, tt := range tests {
		if got := tt.msg.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
