package lifecycle

import (
	"context"
	"os"
	"time"

	"github.com/slate-tools/slate-shell-go/pkg/health"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
	"github.com/slate-tools/slate-shell-go/pkg/process"
	"github.com/slate-tools/slate-shell-go/pkg/reconcile"
	"github.com/slate-tools/slate-shell-go/pkg/supervisor"
)

// portReconciler resolves the port occupant before any spawn attempt.
type portReconciler interface {
	Reconcile() error
}

// serverSupervisor spawns the sidecar and polls for readiness.
type serverSupervisor interface {
	Spawn(ctx context.Context) (*os.Process, error)
	AwaitReady(timeout time.Duration) bool
}

// Window is the minimal surface the shutdown coordinator needs from the
// host window; the supervisor stays free of UI-framework types.
type Window interface {
	Hide() error
	Show() error
	Focus() error
}

// StartupResult reports the outcome of a successful startup. Ready is false
// when the sidecar did not answer health within the readiness timeout; the
// shell may surface that, but nothing here treats it as an error.
type StartupResult struct {
	Ready bool
	PID   int
}

// Lifecycle owns the sidecar's whole run: reconcile the port at startup,
// spawn, wait for readiness, and guarantee tree teardown on quit or exit.
// The entry points are invoked by the UI collaborator (tray menu, window
// events) and run synchronously.
type Lifecycle struct {
	config     *Config
	state      *supervisor.ServerState
	reconciler portReconciler
	supervisor serverSupervisor
	logger     logging.Logger

	// swappable in tests
	killTree func(pid int) error
}

// New wires a Lifecycle from configuration. The config must already be
// validated.
func New(config *Config, logger logging.Logger) *Lifecycle {
	prober := health.NewHTTPProber(config.HealthURL, config.ProbeTimeout, logger)
	state := supervisor.NewServerState()

	reconciler := reconcile.NewReconciler(reconcile.Options{
		Identity: reconcile.Identity{
			App:   config.App,
			Owner: config.Owner,
			Env:   config.Env,
		},
		RawAddress:        config.RawAddress(),
		RawConnectTimeout: config.RawConnectTimeout,
		PortFreeTimeout:   config.PortFreeTimeout,
		PollInterval:      config.PollInterval,
	}, prober, logger)

	sup := supervisor.NewSupervisor(supervisor.Options{
		Execution:    config.Sidecar,
		Owner:        config.Owner,
		Env:          config.Env,
		ReadyTimeout: config.ReadyTimeout,
		PollInterval: config.PollInterval,
	}, state, prober, logger)

	return &Lifecycle{
		config:     config,
		state:      state,
		reconciler: reconciler,
		supervisor: sup,
		logger:     logger,
		killTree:   process.KillTree,
	}
}

// OnStartup runs the single supervisory sequence: classify the port
// occupant, resolve it, spawn a fresh sidecar and wait (best effort) for it
// to report ready. Any returned error is fatal and must abort application
// initialization; a missed readiness deadline is not one of them.
func (l *Lifecycle) OnStartup(ctx context.Context) (StartupResult, error) {
	if err := l.reconciler.Reconcile(); err != nil {
		return StartupResult{}, err
	}

	child, err := l.supervisor.Spawn(ctx)
	if err != nil {
		return StartupResult{}, err
	}

	ready := l.supervisor.AwaitReady(l.config.ReadyTimeout)

	return StartupResult{Ready: ready, PID: child.Pid}, nil
}

// OnWindowClose intercepts a close request on the primary window: the
// window is hidden and the close suppressed (minimize-to-tray policy). The
// child process is never touched here. Returns true when the default close
// must be prevented.
func (l *Lifecycle) OnWindowClose(window Window) bool {
	if window != nil {
		if err := window.Hide(); err != nil {
			l.logger.Warnf("Failed to hide window on close request: %v", err)
		}
	}
	return true
}

// OnQuit handles the explicit quit action (tray menu).
func (l *Lifecycle) OnQuit() {
	l.terminate("quit")
}

// OnExit handles the final application-exit event. Safe to call after
// OnQuit: whichever fires first takes the handle, the other no-ops.
func (l *Lifecycle) OnExit() {
	l.terminate("exit")
}

func (l *Lifecycle) terminate(trigger string) {
	child := l.state.Take()
	if child == nil {
		l.logger.Debugf("No sidecar handle held, nothing to terminate, trigger: %s", trigger)
		return
	}

	l.logger.Infof("Force killing sidecar tree, trigger: %s, PID: %d", trigger, child.Pid)
	if err := l.killTree(child.Pid); err != nil {
		l.logger.Errorf("Failed to kill sidecar tree, PID: %d, error: %v", child.Pid, err)
	}
}
