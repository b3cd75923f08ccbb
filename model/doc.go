// Package model contains the in-memory representation of loan applications,
// underwriting decisions and the conversation exchanged with the decision
// agent.
//
// The structures are deliberately free of orchestration logic – they are the
// durable payloads carried by a workflow instance and therefore have to stay
// schema-stable across process restarts.
package model
