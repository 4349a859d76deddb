package trie

import (
	"errors"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrInvalidKey is returned if a key is empty or contains a character outside the alphabet
	ErrInvalidKey = errors.New("trie: invalid key")
	// ErrOutOfMemory is returned if an insert would exceed the node budget of the trie
	ErrOutOfMemory = errors.New("trie: out of memory")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// node is a single node of the trie. The path from the root to a node spells a key prefix.
type node[V any] struct {
	complete    bool       // true iff the path to this node spells a stored key
	value       V          // only valid if complete
	children    []*node[V] // indexed by alphabet position, nil until the first child is added
	numChildren int
}

// Options configures a Trie
type Options struct {
	// MaxNodes limits the number of nodes (excluding the root) the trie may allocate.
	// An insert that needs more nodes fails with ErrOutOfMemory. 0 = unlimited.
	MaxNodes int
}

// Trie is an ordered dictionary keyed by strings over an Alphabet.
//
// Thread-safety: A Trie is not safe for concurrent use. Callers must serialize
// all access (see the registry package).
type Trie[V any] struct {
	alphabet Alphabet
	root     *node[V]
	maxNodes int
	nodes    int // allocated nodes (excluding root)
	size     int // stored keys
}

// New creates an empty Trie over the given alphabet (opts may be nil)
func New[V any](alphabet Alphabet, opts *Options) *Trie[V] {
	t := &Trie[V]{
		alphabet: alphabet,
		root:     &node[V]{},
	}
	if opts != nil {
		t.maxNodes = opts.MaxNodes
	}
	return t
}

// --------------------------------------------------------------------------
// Node helpers
// --------------------------------------------------------------------------

func (n *node[V]) child(pos int) *node[V] {
	if n.children == nil {
		return nil
	}
	return n.children[pos]
}

// newNode allocates a node if the node budget allows it
func (t *Trie[V]) newNode() (*node[V], bool) {
	if t.maxNodes > 0 && t.nodes >= t.maxNodes {
		return nil, false
	}
	t.nodes++
	return &node[V]{}, true
}

func (t *Trie[V]) attach(parent *node[V], pos int, child *node[V]) {
	if parent.children == nil {
		parent.children = make([]*node[V], t.alphabet.Size())
	}
	parent.children[pos] = child
	parent.numChildren++
}

func (t *Trie[V]) detach(parent *node[V], pos int) {
	parent.children[pos] = nil
	parent.numChildren--
	t.nodes--
	if parent.numChildren == 0 {
		// help the go gc
		parent.children = nil
	}
}

// prune walks the path back towards the root and detaches every node that is
// neither complete nor has children. path[i] is the parent of the node reached
// via key[i], path has len(key)+1 entries.
func (t *Trie[V]) prune(path []*node[V], key string) {
	for i := len(key) - 1; i >= 0; i-- {
		n := path[i+1]
		if n.complete || n.numChildren > 0 {
			return
		}
		t.detach(path[i], t.alphabet.CharToPos(key[i]))
	}
}

// validKey reports whether key is non-empty and only contains alphabet characters
func (t *Trie[V]) validKey(key string) bool {
	if len(key) == 0 {
		return false
	}
	for i := 0; i < len(key); i++ {
		if !t.alphabet.IsValid(key[i]) {
			return false
		}
	}
	return true
}

// find returns the node spelled by key (nil if the path does not exist)
func (t *Trie[V]) find(key string) *node[V] {
	n := t.root
	for i := 0; i < len(key) && n != nil; i++ {
		if !t.alphabet.IsValid(key[i]) {
			return nil
		}
		n = n.child(t.alphabet.CharToPos(key[i]))
	}
	return n
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Insert stores value under key. If the key already exists its value is
// replaced silently, the caller is responsible for the old value.
// If the node budget is exhausted midway, every node created by this call is
// removed again and ErrOutOfMemory is returned.
func (t *Trie[V]) Insert(key string, value V) error {
	if !t.validKey(key) {
		return ErrInvalidKey
	}

	path := make([]*node[V], 1, len(key)+1)
	path[0] = t.root

	n := t.root
	for i := 0; i < len(key); i++ {
		pos := t.alphabet.CharToPos(key[i])
		next := n.child(pos)
		if next == nil {
			var ok bool
			if next, ok = t.newNode(); !ok {
				// unwind the nodes created so far
				t.prune(path, key[:i])
				return ErrOutOfMemory
			}
			t.attach(n, pos, next)
		}
		path = append(path, next)
		n = next
	}

	if !n.complete {
		t.size++
	}
	n.complete = true
	n.value = value
	return nil
}

// Remove deletes key and returns its value. Every ancestor that is no longer
// needed by another key is pruned. The boolean is false if the key was absent or invalid.
func (t *Trie[V]) Remove(key string) (V, bool) {
	var zero V
	if !t.validKey(key) {
		return zero, false
	}

	path := make([]*node[V], 1, len(key)+1)
	path[0] = t.root

	n := t.root
	for i := 0; i < len(key); i++ {
		n = n.child(t.alphabet.CharToPos(key[i]))
		if n == nil {
			return zero, false
		}
		path = append(path, n)
	}
	if !n.complete {
		return zero, false
	}

	value := n.value
	n.complete = false
	n.value = zero
	t.size--

	t.prune(path, key)
	return value, true
}

// Lookup returns the value stored under key
func (t *Trie[V]) Lookup(key string) (V, bool) {
	var zero V
	if len(key) == 0 {
		return zero, false
	}
	n := t.find(key)
	if n == nil || !n.complete {
		return zero, false
	}
	return n.value, true
}

// ForEach calls visit for every stored key in pre-order over the alphabet
// positions. The order is a function of the alphabet, not of the insertion order.
// Iteration stops when visit returns false. visit must not mutate the trie.
func (t *Trie[V]) ForEach(visit func(key string, value V) bool) {
	buf := make([]byte, 0, 32)
	t.forEach(t.root, buf, visit)
}

func (t *Trie[V]) forEach(n *node[V], key []byte, visit func(string, V) bool) bool {
	if n.complete && !visit(string(key), n.value) {
		return false
	}
	if n.numChildren == 0 {
		return true
	}
	for pos, c := range n.children {
		if c == nil {
			continue
		}
		if !t.forEach(c, append(key, t.alphabet.PosToChar(pos)), visit) {
			return false
		}
	}
	return true
}

// Len returns the number of stored keys
func (t *Trie[V]) Len() int {
	return t.size
}

// Nodes returns the number of allocated nodes (excluding the root)
func (t *Trie[V]) Nodes() int {
	return t.nodes
}

// Canonical returns the canonical spelling of key in the trie alphabet
// (e.g. the case folded form) and whether key is valid.
func (t *Trie[V]) Canonical(key string) (string, bool) {
	if !t.validKey(key) {
		return "", false
	}
	b := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		b[i] = t.alphabet.PosToChar(t.alphabet.CharToPos(key[i]))
	}
	return string(b), true
}
