// Package lifecycle owns the sidecar handle for the shell's lifetime.
//
// Owner is a single slot guarded by a mutex with take semantics: Terminate
// removes the handle from the slot and kills it, so however many shutdown
// paths race (window destroyed, signal, deferred cleanup) the child is
// killed at most once.
package lifecycle
