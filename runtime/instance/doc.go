// Package instance defines the durable record of a single loan application's
// progress through the approval workflow.
//
// An Instance is the unit of durability: one per application identifier. It
// carries the immutable application, the latest recommendation or final
// result, the pending human decision, the append-only conversation, a command
// log and an activity journal. Together the command log and journal are the
// persisted history the state machine replays after a restart – transition
// logic must branch only on this record, never on clocks, random values or
// un-logged I/O.
package instance
