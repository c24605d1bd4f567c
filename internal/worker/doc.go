// Package worker drains the job queue in the background.
//
// The worker polls the store for the oldest queued job, claims it, and runs
// the handler registered for the job's "kind" parameter. Claim contention is
// normal when several workers share a database, so a contended claim retries
// after a short delay instead of the full poll interval. Every claimed job
// ends in a terminal record: completed on handler success, failed with the
// handler's error message otherwise.
package worker
