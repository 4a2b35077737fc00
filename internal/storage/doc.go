// Package storage holds the aggregator's word table: a mapping from a
// lowercase first letter to the distinct words seen for that letter.
//
// # Overview
//
// Workers resend their whole cumulative batch on every line, so the same
// word reaches the aggregator many times. The table absorbs that by keeping
// a membership set per letter: a word is added and counted once, and every
// later delivery of the same literal word is a no-op. The result is that
// merging is idempotent (delivering a list twice equals delivering it once)
// and monotonic (counts never decrease).
//
//	Merge(["cat", "dog"])          c: cat          d: dog
//	Merge(["cat", "dog", "cow"])   c: cat, cow     d: dog
//	Merge(["cat"])                 unchanged
//
// # Data Model
//
// Each bucket has:
//   - words: insertion-ordered slice used for display
//   - seen: set used for the membership check
//
// Invariant: len(words) == len(seen) == the bucket's count.
//
// Words are compared literally. The worker lowercases before sending, so in
// practice "Cat" and "cat" never both arrive, but the table does not fold
// case itself; only the bucket key is case-folded.
//
// # Results
//
// Rows returns one Row per bucket sorted by letter, with the letter
// uppercased and the words joined by ", " in insertion order:
//
//	[{"letter":"C","count":2,"words":"cat, cow"},
//	 {"letter":"D","count":1,"words":"dog"}]
//
// # Thread Safety
//
// MemoryStore uses a sync.RWMutex. Merge takes the write lock; Rows, Count
// and Stats take the read lock and return copies.
//
// # Lifecycle
//
// The table lives for the aggregator process and is never pruned or
// persisted.
package storage
