// Package approval models the human decision gate for escalated loan
// applications. An escalation opens a pending request addressed to a
// reviewer; the workflow suspends until a decision arrives. Decisions are
// idempotent per application and fan out on an event queue for observers
// such as dashboards or auto-deciders.
package approval
