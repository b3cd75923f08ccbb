// Package router is the command surface of the workflow runtime. It accepts
// updates (start processing, supply bank account), signals (human decisions)
// and queries (status), serialising mutating commands per application while
// keeping queries lock-free on snapshots.
//
// An application suspended on a human decision holds no lock: the decision
// arrives as a signal, lands in the single pending slot and is folded by
// whoever observes it first.
package router
