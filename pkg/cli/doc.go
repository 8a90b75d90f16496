// Package cli contains shared helpers for the httptap command line:
// error types that distinguish configuration problems from runtime
// failures, and signal-driven shutdown plumbing.
package cli
