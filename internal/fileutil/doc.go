// Package fileutil resolves and prepares the per-user directories the shell
// keeps its config file, instance lock and window profile in.
package fileutil
