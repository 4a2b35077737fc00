// Package cluster defines the wire vocabulary shared by every wordshard node:
// node roles, the registry snapshot pushed on topology changes, the word
// batch exchanged along the worker → validator → aggregator path, and the
// protocol error taxonomy.
//
// # Overview
//
// A wordshard cluster has four roles. The coordinator owns the registry and
// is the only node that mutates it; every other node holds a copy that is
// replaced wholesale whenever the coordinator pushes a new Snapshot.
//
//	              ┌──────────────┐
//	              │ Coordinator  │
//	              │ - Registry   │
//	              │ - Ranges     │
//	              │ - Broadcast  │
//	              └──────┬───────┘
//	   /set_range, /nodes, /line │ /nodes
//	      ┌──────────────┼──────────────┐
//	┌─────▼─────┐  ┌─────▼─────┐  ┌─────▼──────┐
//	│  Worker   │─▶│ Validator │─▶│ Aggregator │
//	│  A-I      │  │ /accept   │  │ /learn     │
//	└───────────┘  └───────────┘  └────────────┘
//
// # Communication Protocol
//
// Every inter-node call is a JSON POST. Bodies are the request types in this
// package (RegisterRequest, LineRequest, RangeRequest, Batch, Snapshot).
// Responses are {"status": ...} on success and {"error": ...} on failure.
//
// Registration (POST /register on the coordinator):
//   - {type, url}; type is worker, validator or aggregator
//   - proposer, acceptor and learner are accepted as aliases
//
// Topology (POST /nodes on every node):
//   - Snapshot: {version, workers: [{url, range|null}], validators: [{url}],
//     aggregator: {url}|null}
//   - Last write wins by arrival; Version is informational
//
// Batches (POST /accept on validators, POST /learn on the aggregator):
//   - {letter_range, count, words}
//   - Workers always send the cumulative batch for their range
//
// # Error Handling
//
// ValidationError wraps the sentinel errors for malformed input and maps to
// HTTP 400 through StatusFor. ErrSourceUnavailable and unclassified errors
// map to 500. Transport failures never reach this layer; they are logged and
// dropped by the sender.
//
// # See Also
//
//   - internal/transport: retrying point-to-point sends
//   - internal/coordinator: registry and range assignment
//   - internal/partition: letter ranges
package cluster
