// Package util provides small building blocks shared by the IRC server.
//
// The package contains:
//   - linequeue: a bounded lock-free Multi-Producer Single-Consumer (MPSC) queue used as the
//     outbound line queue of every connection. Producers (other connection workers broadcasting
//     to a channel) never block.
//   - functions: seed generation, FNV-1a hashing and host cloaking
//   - statistics: summary statistics, e.g. of the member distribution across channels
//
// LineQueue Guarantees:
//
//   - Lock-Free: Push only uses atomic operations
//   - Bounded: at most limit lines are undelivered, further pushes fail with ErrQueueFull
//   - Thread-Safe writes: any number of goroutines may Push() concurrently
//   - Single Consumer: exactly one goroutine reads from Recv()
//   - No Strict FIFO Guarantee across producers: the order of concurrent pushes is determined by
//     which producer completes first. Lines pushed by one goroutine keep their order.
package util
