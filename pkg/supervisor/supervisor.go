package supervisor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
	"github.com/slate-tools/slate-shell-go/pkg/health"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
	"github.com/slate-tools/slate-shell-go/pkg/process"
)

// Environment variable names echoed back by the sidecar's health endpoint,
// enabling self-recognition of zombies across shell restarts.
const (
	OwnerEnvVar = "SLATE_OWNER"
	EnvEnvVar   = "SLATE_ENV"
)

// Options configures a Supervisor.
type Options struct {
	Execution process.ExecutionConfig

	// Identity tags injected into the child's environment.
	Owner string
	Env   string

	ReadyTimeout time.Duration
	PollInterval time.Duration
}

// Supervisor owns spawning the sidecar, moving its handle into the shared
// ServerState, and polling until it reports healthy.
type Supervisor struct {
	options Options
	state   *ServerState
	prober  health.Prober
	logger  logging.Logger

	// OS primitives, swappable in tests
	spawn    func(ctx context.Context, execution process.ExecutionConfig, id string, logger logging.Logger) (*os.Process, error)
	killTree func(pid int) error
}

func NewSupervisor(options Options, state *ServerState, prober health.Prober, logger logging.Logger) *Supervisor {
	return &Supervisor{
		options:  options,
		state:    state,
		prober:   prober,
		logger:   logger,
		spawn:    process.Spawn,
		killTree: process.KillTree,
	}
}

// Spawn launches the sidecar with the owner/env identity tags in its
// environment and moves the handle into the ServerState. Launch failure is
// fatal to startup.
func (s *Supervisor) Spawn(ctx context.Context) (*os.Process, error) {
	execution := s.options.Execution
	execution.Environment = append(append([]string{}, execution.Environment...),
		fmt.Sprintf("%s=%s", OwnerEnvVar, s.options.Owner),
		fmt.Sprintf("%s=%s", EnvEnvVar, s.options.Env),
	)

	child, err := s.spawn(ctx, execution, "slate-server", s.logger)
	if err != nil {
		return nil, errors.NewProcessError("failed to spawn sidecar", err)
	}

	if err := s.state.Put(child); err != nil {
		// Never leave an untracked child behind
		s.logger.Errorf("Server state already holds a child, killing fresh spawn, PID: %d", child.Pid)
		if killErr := s.killTree(child.Pid); killErr != nil {
			s.logger.Errorf("Failed to kill untracked spawn, PID: %d, error: %v", child.Pid, killErr)
		}
		return nil, err
	}

	s.logger.Infof("Sidecar spawned, PID: %d, owner: %s, env: %s", child.Pid, s.options.Owner, s.options.Env)
	return child, nil
}

// AwaitReady polls the health endpoint until the sidecar answers or the
// timeout elapses. A timeout is not fatal: the server may still come up
// shortly, so the outcome is reported, not raised.
func (s *Supervisor) AwaitReady(timeout time.Duration) bool {
	ready := health.WaitForReady(s.prober, timeout, s.options.PollInterval)
	if ready {
		s.logger.Infof("Server ready")
	} else {
		s.logger.Warnf("Server failed to report ready within %v, proceeding anyway", timeout)
	}
	return ready
}
