// Package progress defines primitives for reporting and aggregating how loan
// applications move through the processing pipeline.  It abstracts away the
// underlying communication mechanism so that callers can consume progress
// updates in a uniform way.
package progress
