package queue

import "errors"

// ErrDuplicateID indicates an enqueue collided with an existing job id.
// Producers recover by generating a new identifier.
var ErrDuplicateID = errors.New("job id already exists")

// ErrContended indicates a claim lost the race for the write lock. Callers
// should back off briefly and try again; the queue may or may not be empty.
var ErrContended = errors.New("queue contended")

// UpdateOutcome reports what a terminal-status update actually did, so
// callers that care about prior state can assert it. The update itself is
// applied unconditionally either way.
type UpdateOutcome int

const (
	// UpdateApplied means the row existed and was not already terminal.
	UpdateApplied UpdateOutcome = iota
	// UpdateNotFound means no row matched the id; nothing was written.
	UpdateNotFound
	// UpdateAlreadyTerminal means the row was already completed or failed
	// before this update overwrote it.
	UpdateAlreadyTerminal
)

func (o UpdateOutcome) String() string {
	switch o {
	case UpdateApplied:
		return "applied"
	case UpdateNotFound:
		return "not_found"
	case UpdateAlreadyTerminal:
		return "already_terminal"
	default:
		return "unknown"
	}
}
