// Package job defines the remote job representation, its lifecycle
// states, the resource types served next to it, and the snapshot store
// interface.
//
// # Snapshots
//
// A [Snapshot] is one observation of a job. It is never mutated once
// decoded; every fetch produces a new value. Fields the library does not
// interpret are kept verbatim in Metadata.
//
// # Lifecycle
//
//	pending → processing → success
//	pending → processing → awaitingInput → processing → ...
//	pending → processing → awaitingTds → processing → ...
//	pending → processing → fail
//
// success and fail are terminal: [State.IsTerminal].
//
// # Store
//
// [Store] persists the last delivered snapshot of a job. Backends live
// under store/.
package job
