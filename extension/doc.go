// Package extension provides run-time registries for the activity services
// and Go types the orchestrator works with (for example activity inputs or
// outputs).
//
// The registries are normally populated through the public APIs of the root
// loanflow package, therefore most applications do not need to import this
// package directly.
package extension
