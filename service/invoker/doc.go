// Package invoker executes named external activities (decision agent turn,
// bank-statement lookup, notification webhook) with an exactly-once recording
// discipline.
//
// The first invocation at a given call-site performs the real external call
// and journals {input hash, result} on the owning workflow instance before
// returning; a replay of the same call-site returns the recorded result
// without re-invoking the collaborator. Transient failures are retried with
// bounded exponential backoff; permanent failures surface to the state
// machine as typed errors. The single real invocation is still delivered
// at-least-once to the external system, so collaborators must be idempotent
// or de-duplicate on their side.
package invoker
