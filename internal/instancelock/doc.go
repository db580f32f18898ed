// Package instancelock guards against two shells supervising sidecars for the
// same user at once. It holds an exclusive advisory lock on a file in the
// shell's data directory for the lifetime of the process.
package instancelock
