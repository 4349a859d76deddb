package trie

// --------------------------------------------------------------------------
// Prefix Search Session
// --------------------------------------------------------------------------

// frame is a pending node of a search session
type frame[V any] struct {
	n      *node[V]
	suffix string // path below the search prefix
}

// Search is a restartable prefix search session. It carries the remaining
// search frontier explicitly, so results can be pulled one at a time across
// separate calls without holding any lock in between.
//
// Preconditions (not checked at runtime):
//   - Next must not be called concurrently with a mutation of the same trie.
//   - A session must not be resumed after a removal that pruned a node still on
//     the frontier. The result of doing so is undefined.
type Search[V any] struct {
	alphabet Alphabet
	maxDepth int // maximum total key length (prefix + suffix), 0 = unlimited
	prefix   int
	stack    []frame[V]
}

// PrefixSearch starts a search for all keys beginning with prefix whose total
// length is at most maxDepth (0 = unlimited). The empty prefix matches every key.
func (t *Trie[V]) PrefixSearch(prefix string, maxDepth int) *Search[V] {
	s := &Search[V]{
		alphabet: t.alphabet,
		maxDepth: maxDepth,
		prefix:   len(prefix),
	}
	if maxDepth > 0 && len(prefix) > maxDepth {
		return s
	}
	if n := t.find(prefix); n != nil {
		s.stack = append(s.stack, frame[V]{n: n})
	}
	return s
}

// Next returns the next matching key (as suffix below the prefix) and its value.
// The boolean is false once the session is exhausted.
func (s *Search[V]) Next() (string, V, bool) {
	for len(s.stack) > 0 {
		// pop
		f := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		// push children in reverse order so that the lowest position is visited first
		if f.n.numChildren > 0 && (s.maxDepth == 0 || s.prefix+len(f.suffix) < s.maxDepth) {
			for pos := len(f.n.children) - 1; pos >= 0; pos-- {
				if c := f.n.children[pos]; c != nil {
					s.stack = append(s.stack, frame[V]{
						n:      c,
						suffix: f.suffix + string(s.alphabet.PosToChar(pos)),
					})
				}
			}
		}

		if f.n.complete {
			return f.suffix, f.n.value, true
		}
	}

	var zero V
	return "", zero, false
}

// Done reports whether the session is exhausted
func (s *Search[V]) Done() bool {
	return len(s.stack) == 0
}
