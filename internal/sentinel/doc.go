// Package sentinel defines a string-backed error type so that sidecarshell's
// sentinel errors can be declared as constants instead of package variables.
// Values stay comparable, so errors.Is matches them through wrapped chains.
package sentinel
