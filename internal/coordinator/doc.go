// Package coordinator implements the control plane of a wordshard cluster:
// node registration, letter-range assignment, topology broadcast and
// document dispatch.
//
// # Overview
//
// The coordinator is the only node that knows the cluster before anyone
// else does. Workers, validators and the aggregator register with it; it
// decides which letters each worker owns and tells every node who its peers
// are. A POST /start then streams a document, line by line, to every worker.
//
//	┌─────────────────────────────────────┐
//	│            COORDINATOR              │
//	├─────────────────────────────────────┤
//	│  Registry        (immutable value)  │
//	│   - workers + ranges, in order      │
//	│   - validators, in order            │
//	│   - aggregator slot                 │
//	│                                     │
//	│  RegisterNode → AssignRanges        │
//	│              → BroadcastTopology    │
//	│                                     │
//	│  DispatchDocument                   │
//	│   - LineSource → every worker       │
//	│                                     │
//	│  HealthMonitor   (report only)      │
//	└─────────────────────────────────────┘
//
// # Registration
//
// POST /register {"type": "worker", "url": "http://host:port"} adds a node.
// The legacy role names proposer, acceptor and learner are accepted.
//
//   - a new worker is appended and every worker's range is recomputed
//     with partition.Assign, then pushed with POST /set_range
//   - a new validator is appended
//   - an aggregator always replaces the previous one
//
// Every change bumps the registry version and pushes the full snapshot to
// every node with POST /nodes. Re-registering a known worker or validator
// is acknowledged but changes nothing and sends nothing.
//
// # Range Assignment
//
// With N workers each gets ceil(26/N) consecutive letters in registration
// order; the last range is clipped at Z. For some N the trailing workers get
// no letters at all (N=10 covers A..Z with nine workers). Those workers stay
// registered and receive topology pushes but never a range.
//
// # Dispatch
//
// POST /start {"filename": "doc.txt"} reads the document through a
// LineSource. If it cannot be read the request fails with 500 and nothing is
// sent. Otherwise each non-blank line, trimmed, is sent as POST /line to
// every worker in registry order. Delivery failures are logged and counted
// in the response; they do not abort the dispatch.
//
// # Concurrency
//
// Registry mutations are serialized by a mutex and committed as a new
// Registry value. Fan-out sends run after the lock is released, against the
// value that mutation produced, so a slow node never blocks registration.
// Two concurrent registrations may therefore deliver their snapshots out of
// order; receivers compare versions and log regressions.
//
// # Failure Handling
//
// Every outbound message goes through transport.Sender (3 attempts, 1s
// apart). Exhausted retries are logged and the coordinator moves on. The
// HealthMonitor probes GET /health on every member and reports state on
// GET /health/nodes, but nothing is ever deregistered or reassigned.
package coordinator
