// Package daemon wraps the workflow manager and queue store into a single
// lifecycle with flock-based locking to prevent multiple concurrent
// daemon instances against the same queue database.
package daemon
