// Package shard implements the worker's running batch: the cumulative list
// of words a worker has matched for its assigned letter range.
//
// # Overview
//
// A worker receives every line of the document. For each line it keeps the
// words whose first letter falls in its range, appends them to the shard for
// that range, and forwards the whole shard as one batch:
//
//	range A-C
//	line "Cat dog"   → shard [cat]           → send {A-C, 1, [cat]}
//	line "cow Cat"   → shard [cat, cow, cat] → send {A-C, 3, [cat, cow, cat]}
//
// The batch is cumulative. Nothing upstream tracks deltas or
// removes duplicates; the aggregator's membership check makes repeated
// deliveries converge.
//
// # Range Changes
//
// A worker keeps one shard per range it has owned. When the coordinator
// reassigns ranges the worker starts a fresh shard for the new range; the old
// shard is kept but no longer fed.
//
// # Thread Safety
//
// Word slices are guarded by an RWMutex and counters use sync/atomic.
// Batch and Info return copies, so a batch can be sent after the worker has
// released its own lock.
package shard
