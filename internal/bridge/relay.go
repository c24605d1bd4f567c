package bridge

import (
	"strings"

	"github.com/google/uuid"

	"dispatch/internal/ipc"
)

// Relay hands a validated job off to the daemon.
type Relay interface {
	// Enqueue persists the job and returns its assigned id.
	Enqueue(params map[string]any) (string, error)
}

// SocketRelay enqueues jobs through the daemon's IPC socket. Each call dials
// a fresh connection; the bridge and daemon are separate processes and the
// daemon may restart between requests.
type SocketRelay struct {
	socketPath string
}

// NewSocketRelay builds a relay for the given daemon socket.
func NewSocketRelay(socketPath string) *SocketRelay {
	return &SocketRelay{socketPath: socketPath}
}

// Enqueue mints a UUID job id and relays the job over IPC. An id collision
// is retried once with a fresh id; two consecutive collisions mean something
// other than bad luck is wrong.
func (r *SocketRelay) Enqueue(params map[string]any) (string, error) {
	client, err := ipc.Dial(r.socketPath)
	if err != nil {
		return "", ipc.WrapDialError(r.socketPath, err)
	}
	defer client.Close()

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := client.Enqueue(uuid.NewString(), params)
		if err != nil {
			if attempt == 0 && isDuplicateIDError(err) {
				continue
			}
			return "", err
		}
		return resp.Job.ID, nil
	}
	return "", errDuplicateRetryExhausted
}

var errDuplicateRetryExhausted = &relayError{"job id collision persisted across retry"}

type relayError struct{ msg string }

func (e *relayError) Error() string { return e.msg }

// isDuplicateIDError matches the queue's duplicate-id failure after it has
// crossed the RPC boundary as a plain string.
func isDuplicateIDError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "job id already exists")
}
