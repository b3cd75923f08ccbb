// Package machine drives a loan application through its decision loop. Every
// transition is derived from the durable command log and activity journal, so
// running the same history through the machine always rebuilds the same
// state. The machine itself never reads clocks or random sources when
// branching.
package machine
