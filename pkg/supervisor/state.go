package supervisor

import (
	"os"
	"sync"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
)

// ServerState holds the supervisor's claim on the spawned sidecar process.
// At most one live child handle is held at any time; holding a handle means
// the supervisor is responsible for eventually terminating it. Take is an
// atomic claim: only one caller can ever retrieve a non-nil handle.
type ServerState struct {
	mutex sync.Mutex
	child *os.Process
}

func NewServerState() *ServerState {
	return &ServerState{}
}

// Put stores the child handle. It is an error to store a second handle
// while one is already held.
func (s *ServerState) Put(child *os.Process) error {
	if child == nil {
		return errors.NewValidationError("child process cannot be nil", nil)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.child != nil {
		return errors.NewConflictError("a server child handle is already held", nil).WithContext("held_pid", s.child.Pid)
	}
	s.child = child
	return nil
}

// Take atomically claims the child handle, leaving the state empty.
// Returns nil when no handle is held.
func (s *ServerState) Take() *os.Process {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	child := s.child
	s.child = nil
	return child
}

// Held reports whether a child handle is currently held.
func (s *ServerState) Held() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.child != nil
}
