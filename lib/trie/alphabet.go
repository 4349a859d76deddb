package trie

// --------------------------------------------------------------------------
// Alphabet Interface
// --------------------------------------------------------------------------

// Alphabet defines the set of characters a Trie accepts as key material.
// It is a bijection between the (canonical) characters of the alphabet and
// the positions [0, Size()) of the child array of every node.
//
// Several input characters may map to the same position (case folding). In
// that case PosToChar returns the canonical spelling of that position.
type Alphabet interface {
	// Size returns the number of positions of the alphabet
	Size() int
	// IsValid reports whether c may appear in a key
	IsValid(c byte) bool
	// CharToPos maps a valid character to its position. The result is undefined for invalid characters.
	CharToPos(c byte) int
	// PosToChar maps a position back to its canonical character
	PosToChar(pos int) byte
}

// --------------------------------------------------------------------------
// Table based Alphabet implementation
// --------------------------------------------------------------------------

// tableAlphabet implements Alphabet with a 256 entry lookup table
type tableAlphabet struct {
	pos   [256]int16 // -1 = invalid
	chars []byte     // canonical char per position
}

// NewAlphabet creates an Alphabet from the canonical characters in chars.
// The fold function maps any input character to its canonical form (nil = identity).
// A character is valid iff its folded form is contained in chars.
//
// Thread-safety: The returned Alphabet is immutable and safe for concurrent use.
func NewAlphabet(chars string, fold func(byte) byte) Alphabet {
	a := &tableAlphabet{
		chars: make([]byte, 0, len(chars)),
	}
	for i := range a.pos {
		a.pos[i] = -1
	}

	// assign positions to the canonical characters (duplicates are ignored)
	for i := 0; i < len(chars); i++ {
		c := chars[i]
		if a.pos[c] != -1 {
			continue
		}
		a.pos[c] = int16(len(a.chars))
		a.chars = append(a.chars, c)
	}

	// map all folded characters onto the canonical positions
	if fold != nil {
		for c := 0; c < 256; c++ {
			canonical := fold(byte(c))
			if canonical != byte(c) && a.pos[canonical] != -1 && a.pos[c] == -1 {
				a.pos[c] = a.pos[canonical]
			}
		}
	}

	return a
}

func (a *tableAlphabet) Size() int {
	return len(a.chars)
}

func (a *tableAlphabet) IsValid(c byte) bool {
	return a.pos[c] != -1
}

func (a *tableAlphabet) CharToPos(c byte) int {
	return int(a.pos[c])
}

func (a *tableAlphabet) PosToChar(pos int) byte {
	return a.chars[pos]
}

// --------------------------------------------------------------------------
// IRC Alphabets
// --------------------------------------------------------------------------

// FoldRFC1459 implements the rfc1459 case mapping: A-Z are lower-cased and
// the characters []\~ are considered the upper-case forms of {}|^
func FoldRFC1459(c byte) byte {
	switch {
	case c >= 'A' && c <= 'Z':
		return c + ('a' - 'A')
	case c == '[':
		return '{'
	case c == ']':
		return '}'
	case c == '\\':
		return '|'
	case c == '~':
		return '^'
	default:
		return c
	}
}

const (
	letters = "abcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
)

var (
	// NicknameAlphabet accepts the characters allowed in nicknames
	// (letters, digits and -`^{|}_ plus their rfc1459 upper-case forms).
	NicknameAlphabet = NewAlphabet(letters+digits+"-`^{|}_", FoldRFC1459)

	// ChannelAlphabet accepts every printable ASCII character except
	// space, comma and colon (with rfc1459 case mapping).
	ChannelAlphabet = NewAlphabet(channelChars(), FoldRFC1459)
)

// channelChars returns the canonical characters of channel names
func channelChars() string {
	chars := make([]byte, 0, 94)
	for c := byte('!'); c <= '~'; c++ {
		if c == ',' || c == ':' {
			continue
		}
		// skip upper-case forms, they are folded
		if FoldRFC1459(c) != c {
			continue
		}
		chars = append(chars, c)
	}
	return string(chars)
}
