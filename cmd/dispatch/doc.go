// Command dispatch is the operator CLI for the job-dispatch bridge. It talks
// to the dispatchd daemon over its control socket and can also run the
// agent-facing bridge server or a standalone worker loop in the foreground.
package main
