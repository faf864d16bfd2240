// Package storage defines persistence for the activation registry's state:
// per-model activation records and the global activation slot.
//
// The registry's in-memory state stays authoritative; stores hydrate it at
// startup and receive write-through updates afterwards. Activation state is
// a best-effort cache, so registry reads never block on a store and store
// write failures degrade to log warnings.
//
// Two implementations exist: memory (default, process-lifetime) and
// postgres (survives restarts).
package storage
