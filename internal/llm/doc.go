// Package llm talks to the hosted chat-completions API the bridge forwards
// prompts to.
//
// The client advertises the enqueue_job tool on every dispatch request and
// returns either plain assistant text or the structured tool call the model
// produced. Transient failures (rate limits, 5xx, timeouts, empty responses)
// retry with exponential backoff, honoring Retry-After when present.
package llm
