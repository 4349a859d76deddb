// Package channel implements the channel directory of the IRC server: channel
// membership, create-on-demand / destroy-on-empty lifecycle and broadcasting.
//
// The directory is a registry.Registry keyed by channel name. Each Channel owns
// a trie of its members (nickname -> Member). A channel has exactly two states:
// absent, or active with at least one member. It is created by the first
// successful Join and destroyed by the Part or Quit that removes its last member,
// within the same exclusive registry operation.
//
// Locking:
//
//   - Join, Part, Quit and ChangeNick run through FindAndExecuteExclusive. The
//     registry's global lock is held for the whole callback, so creating or
//     deleting the channel entry from inside the callback is safe.
//   - Message, Notice, Names and the topic operations run through FindAndExecute
//     and only hold the lock of the channel concerned. They never change the
//     member trie.
//   - ListAll and List iterate the registry under its global lock.
//
// Collaborators:
//
//	The directory talks to connections through IUser and renders lines with an
//	IReplyFormatter. IUser.Send must not block: broadcasting happens while
//	registry locks are held.
//
// Errors:
//
//	Every operation returns nil or an *Error whose RetCode is one of a small
//	closed set (RetCInvalidName, RetCOutOfMemory, RetCNotOnChannel,
//	RetCNoSuchChannel, RetCTooManyChannels, RetCAlreadyOnChannel, RetCNickCollision).
//	A failed operation leaves the directory exactly as it was.
//
// Member identity:
//
//	Member tries are keyed by nickname, but a record only belongs to the user it
//	points to. Part, Quit, SetTopic and a repeated Join never act on a record
//	that another user left under the same nickname.
package channel
