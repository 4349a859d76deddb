// Package registry implements a concurrent keyed registry: a trie based
// dictionary wrapped in a two-tier locking protocol. It gives atomic
// "find-and-act" semantics while operations on different keys can proceed in
// parallel. The nickname directory and the channel directory are both
// instances of Registry.
//
// Locks:
//
//   - Global lock: guards the trie structure and the step from a key to its
//     entry. Held for O(key length) by lookups, inserts and removals.
//
//   - Entry lock: one per stored value. Guards execution against that value.
//
// Lock Ordering:
//
//	The global lock is always acquired before an entry lock. An entry lock is
//	never held while trying to acquire the global lock. This ordering is the
//	only deadlock avoidance mechanism, which is why onFound callbacks of
//	FindAndExecute must never call back into the registry.
//
// Find and Execute:
//
//	FindAndExecute locates the entry under the global lock, acquires the entry
//	lock, releases the global lock and runs onFound holding only the entry
//	lock. Two goroutines working on different keys therefore only serialize
//	for the short window used to locate their entries.
//
//	FindAndExecuteExclusive keeps the global lock for the whole callback. After
//	locating the entry it acquires and immediately releases the entry lock.
//	This rendezvous proves that no fine-grained onFound is running against the
//	entry, and none can start while the global lock is held. The callback may
//	thereby delete its own entry (RemoveNoLock) without racing a concurrent
//	reader. The price is that exclusive calls serialize against everything else.
//
//	In both variants onNotFound runs with the global lock held and may create
//	the missing entry through InsertNoLock.
//
// Removal:
//
//	Remove performs the same rendezvous before dropping the entry, so an entry
//	that has left the trie is never executed against again.
//
// Usage Example:
//
//	channels := registry.New[*Channel](trie.ChannelAlphabet, nil)
//
//	found, err := channels.FindAndExecuteExclusive("#go",
//	    func(ch *Channel) error {
//	        // global lock held, may call channels.RemoveNoLock("#go")
//	        return nil
//	    },
//	    func() error {
//	        // global lock held, may call channels.InsertNoLock("#go", ...)
//	        return nil
//	    },
//	)
package registry
