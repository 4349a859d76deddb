// Package trie implements a prefix tree (trie) keyed by strings over a
// caller-defined alphabet. It is the storage layer underneath the registry
// package and thereby underneath the nickname and channel directories.
//
// Key Components:
//
//   - Alphabet: A bijection between the characters of a keyspace and the
//     positions [0, Size()) of each node's child array. Case folding is part of
//     the mapping, so "Alice" and "alice" address the same node. The package
//     ships NicknameAlphabet and ChannelAlphabet (rfc1459 case mapping).
//
//   - Trie: An owning tree. Every node owns its children outright. Deleting a
//     key prunes every ancestor that neither spells a stored key nor has
//     children, so the memory held by the trie is exactly the shared prefix
//     structure of the stored keys. No node without children and without a
//     stored key ever survives an operation.
//
//   - Search: A restartable prefix search session. The frontier is held in an
//     explicit stack so results can be pulled one at a time.
//
// Memory Budget:
//
//	A trie can be given a node budget (Options.MaxNodes). An insert that would
//	exceed the budget fails with ErrOutOfMemory and removes every node it
//	created, leaving the trie exactly as before the call.
//
// Ordering:
//
//	ForEach and Search visit keys in pre-order over the alphabet positions.
//	The order is a function of the alphabet and must not be relied upon.
//
// Thread Safety:
//
//	A Trie is not safe for concurrent use. See the registry package for the
//	locking protocol that wraps it.
package trie
