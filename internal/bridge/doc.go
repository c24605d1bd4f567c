// Package bridge serves the agent-facing HTTP endpoint. A dispatch request
// carries a free-form prompt; the bridge forwards it to the hosted model
// advertising the enqueue_job tool, and either returns the model's textual
// reply or relays the structured tool call to the daemon, which persists the
// job. Job ids are minted here with UUIDs so a duplicate collision can be
// retried with a fresh id without involving the model again.
package bridge
