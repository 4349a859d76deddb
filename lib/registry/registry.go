package registry

import (
	"errors"
	"github.com/ValentinKolb/dIRC/lib/trie"
	"sync"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrInvalidKey indicates a key that violates the alphabet of the registry
	ErrInvalidKey = trie.ErrInvalidKey
	// ErrOutOfMemory indicates that the node budget of the registry is exhausted.
	// The failed operation has been rolled back.
	ErrOutOfMemory = trie.ErrOutOfMemory
	// ErrAlreadyExists indicates that an insert lost the race for a key
	ErrAlreadyExists = errors.New("registry: key already exists")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// entry wraps a stored value with its own lock
type entry[V any] struct {
	mu    sync.Mutex
	value V
}

// Options configures a Registry
type Options[V any] struct {
	// Destructor is called for every value when the registry is destroyed with freeValues=true
	Destructor func(V)
	// MaxNodes limits the number of trie nodes (0 = unlimited). See trie.Options.
	MaxNodes int
}

// Registry is a concurrent dictionary over a trie with a global lock and one lock per entry.
//
// Lock ordering: the global lock is always acquired before any entry lock, and
// an entry lock is never held while trying to acquire the global lock.
type Registry[V any] struct {
	mu         sync.Mutex
	tree       *trie.Trie[*entry[V]]
	alphabet   trie.Alphabet
	maxNodes   int
	destructor func(V)
}

// New creates an empty registry for keys over the given alphabet (opts may be nil)
func New[V any](alphabet trie.Alphabet, opts *Options[V]) *Registry[V] {
	r := &Registry[V]{
		alphabet: alphabet,
	}
	if opts != nil {
		r.destructor = opts.Destructor
		r.maxNodes = opts.MaxNodes
	}
	r.tree = trie.New[*entry[V]](alphabet, &trie.Options{MaxNodes: r.maxNodes})
	return r
}

// --------------------------------------------------------------------------
// Lookup, Insert, Remove
// --------------------------------------------------------------------------

// Lookup returns the value stored under key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// The returned value must only be used in ways that are safe without the entry lock.
func (r *Registry[V]) Lookup(key string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero V
	e, ok := r.tree.Lookup(key)
	if !ok {
		return zero, false
	}
	return e.value, true
}

// Insert stores value under key. Returns ErrAlreadyExists if the key is taken,
// ErrInvalidKey or ErrOutOfMemory otherwise (nil on success).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) Insert(key string, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.InsertNoLock(key, value)
}

// InsertNoLock is Insert for callers that already hold the global lock, i.e.
// from an onNotFound callback or an exclusive onFound callback.
//
// Thread-safety: The caller must hold the global lock!
func (r *Registry[V]) InsertNoLock(key string, value V) error {
	if _, ok := r.tree.Lookup(key); ok {
		return ErrAlreadyExists
	}
	return r.tree.Insert(key, &entry[V]{value: value})
}

// Remove deletes key and returns its value.
// Before the entry is dropped, its lock is acquired and released once. This
// rendezvous guarantees that no fine-grained operation is still running
// against the entry.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) Remove(key string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.RemoveNoLock(key)
}

// RemoveNoLock is Remove for callers that already hold the global lock.
// Calling it from an exclusive onFound for the key being executed against is
// safe: the rendezvous has already taken place and can not block.
//
// Thread-safety: The caller must hold the global lock!
func (r *Registry[V]) RemoveNoLock(key string) (V, bool) {
	var zero V
	e, ok := r.tree.Lookup(key)
	if !ok {
		return zero, false
	}

	// rendezvous with any onFound still holding the entry lock
	e.mu.Lock()
	e.mu.Unlock()

	r.tree.Remove(key)
	value := e.value
	e.value = zero
	return value, true
}

// --------------------------------------------------------------------------
// Find and Execute
// --------------------------------------------------------------------------

// FindAndExecute looks up key and runs exactly one of the callbacks.
//
//   - Key absent: onNotFound runs while the global lock is held. It may call
//     InsertNoLock / RemoveNoLock.
//   - Key present: the entry lock is acquired, the global lock released and
//     onFound runs holding only the entry lock. onFound must never call any
//     method of this registry (neither mutations nor Lookup).
//
// Two calls for the same key never run onFound concurrently. Calls for
// different keys only serialize while locating their entries.
// A nil callback is treated as a no-op. Returns whether the key was found and
// the error of the callback that ran.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) FindAndExecute(key string, onFound func(value V) error, onNotFound func() error) (bool, error) {
	r.mu.Lock()

	e, ok := r.tree.Lookup(key)
	if !ok {
		defer r.mu.Unlock()
		if onNotFound == nil {
			return false, nil
		}
		return false, onNotFound()
	}

	// lock the entry before the global lock is released, so it can not be removed in between
	e.mu.Lock()
	r.mu.Unlock()
	defer e.mu.Unlock()

	if onFound == nil {
		return true, nil
	}
	return true, onFound(e.value)
}

// FindAndExecuteExclusive behaves like FindAndExecute, except that onFound
// runs while the global lock is still held. Once the entry is located its lock
// is acquired and released immediately (the same rendezvous as Remove), so no
// other onFound can be running for it and no new one can start.
//
// This permits onFound to remove or re-insert its own key via the NoLock
// primitives. It must not structurally modify any other entry.
// Exclusive calls serialize against every other registry operation for the
// duration of their callback.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) FindAndExecuteExclusive(key string, onFound func(value V) error, onNotFound func() error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tree.Lookup(key)
	if !ok {
		if onNotFound == nil {
			return false, nil
		}
		return false, onNotFound()
	}

	// rendezvous
	e.mu.Lock()
	e.mu.Unlock()

	if onFound == nil {
		return true, nil
	}
	return true, onFound(e.value)
}

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// ForEach visits every entry under the global lock, holding the entry lock of
// the visited entry for the duration of the visit. The order is alphabet order.
// visit must not call any method of this registry. Iteration stops if visit returns false.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) ForEach(visit func(key string, value V) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tree.ForEach(func(key string, e *entry[V]) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return visit(key, e.value)
	})
}

// PrefixSearch visits every entry whose key starts with prefix and whose total
// length is at most maxDepth (0 = unlimited). The whole search session runs
// under the global lock, so the result is a consistent snapshot.
// visit receives the full key and follows the same rules as in ForEach.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) PrefixSearch(prefix string, maxDepth int, visit func(key string, value V) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.tree.PrefixSearch(prefix, maxDepth)
	for {
		suffix, e, ok := s.Next()
		if !ok {
			return
		}
		e.mu.Lock()
		cont := visit(prefix+suffix, e.value)
		e.mu.Unlock()
		if !cont {
			return
		}
	}
}

// Len returns the number of stored entries.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Len()
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// Destroy removes every entry. If freeValues is true the destructor (if any)
// is called once for every value.
//
// Thread-safety: This method is not thread-safe! The caller must guarantee
// that no other goroutine uses the registry.
func (r *Registry[V]) Destroy(freeValues bool) {
	old := r.tree
	var zero V

	old.ForEach(func(_ string, e *entry[V]) bool {
		if freeValues && r.destructor != nil {
			r.destructor(e.value)
		}
		e.value = zero
		return true
	})

	r.tree = trie.New[*entry[V]](r.alphabet, &trie.Options{MaxNodes: r.maxNodes})
}
