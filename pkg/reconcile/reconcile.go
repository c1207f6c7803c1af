package reconcile

import (
	"fmt"
	"time"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
	"github.com/slate-tools/slate-shell-go/pkg/health"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
	"github.com/slate-tools/slate-shell-go/pkg/process"
	"github.com/slate-tools/slate-shell-go/pkg/processstate"
)

// Identity is the fingerprint this shell instance stamps onto its sidecar
// and expects back from the health endpoint.
type Identity struct {
	App   string
	Owner string
	Env   string
}

// DecisionKind classifies the current occupant of the server port.
type DecisionKind string

const (
	// DecisionPortFree means nothing is listening; safe to spawn.
	DecisionPortFree DecisionKind = "port-free"

	// DecisionForeignApplication means the port is held by something that
	// is not a slate-server (or won't speak the health protocol at all).
	// Fatal; never touched.
	DecisionForeignApplication DecisionKind = "foreign-application"

	// DecisionForeignOwnerOrEnv means a legitimate slate-server with a
	// different owner/env identity holds the port. Fatal; never touched.
	DecisionForeignOwnerOrEnv DecisionKind = "foreign-owner-or-env"

	// DecisionOwnedZombie means a previous run of this exact identity
	// survived; safe and expected to reclaim it.
	DecisionOwnedZombie DecisionKind = "owned-zombie"
)

// Decision is the reconciliation outcome; PID is set only for owned zombies.
type Decision struct {
	Kind DecisionKind
	PID  int
}

// Classify maps a probe result plus the raw TCP connectivity state onto a
// decision. An HTTP 200 with a parseable body is strong identity evidence;
// a bare TCP-connect success with no parseable health response is weak
// evidence and is treated conservatively as a fatal foreign conflict.
func Classify(identity Identity, resp *health.HealthResponse, rawConnectable bool) Decision {
	if resp == nil {
		if rawConnectable {
			return Decision{Kind: DecisionForeignApplication}
		}
		return Decision{Kind: DecisionPortFree}
	}
	if resp.App != identity.App {
		return Decision{Kind: DecisionForeignApplication}
	}
	if resp.Owner != identity.Owner || resp.Env != identity.Env {
		return Decision{Kind: DecisionForeignOwnerOrEnv}
	}
	return Decision{Kind: DecisionOwnedZombie, PID: resp.PID}
}

// Options configures a Reconciler.
type Options struct {
	Identity Identity

	// RawAddress is the host:port used for the bare TCP disambiguation check.
	RawAddress        string
	RawConnectTimeout time.Duration

	// PortFreeTimeout bounds the wait for the port to free after a zombie kill.
	PortFreeTimeout time.Duration
	PollInterval    time.Duration
}

// Reconciler classifies the port occupant at startup and enacts the
// decision: proceed, abort, or kill-zombie-then-proceed.
type Reconciler struct {
	options Options
	prober  health.Prober
	logger  logging.Logger

	// OS primitives, swappable in tests
	rawConnect func(address string, timeout time.Duration) bool
	killTree   func(pid int) error
	isRunning  func(pid int) (bool, error)
}

func NewReconciler(options Options, prober health.Prober, logger logging.Logger) *Reconciler {
	return &Reconciler{
		options:    options,
		prober:     prober,
		logger:     logger,
		rawConnect: health.RawPortConnectable,
		killTree:   process.KillTree,
		isRunning:  processstate.IsProcessRunning,
	}
}

// Reconcile runs once before any spawn attempt. A nil return means the
// port is free and spawning may proceed; any error is fatal and aborts
// startup with no spawn attempted.
func (r *Reconciler) Reconcile() error {
	resp := r.prober.Probe()

	var rawConnectable bool
	if resp == nil {
		r.logger.Infof("Port unresponsive or invalid fingerprint, checking raw connectivity, address: %s", r.options.RawAddress)
		rawConnectable = r.rawConnect(r.options.RawAddress, r.options.RawConnectTimeout)
	}

	decision := Classify(r.options.Identity, resp, rawConnectable)

	switch decision.Kind {
	case DecisionPortFree:
		r.logger.Infof("Port free, safe to spawn, address: %s", r.options.RawAddress)
		return nil

	case DecisionForeignApplication:
		r.logger.Errorf("Port occupied by unknown application, address: %s", r.options.RawAddress)
		return errors.NewConflictError(
			fmt.Sprintf("port at %s is in use by another application; close old server instances first", r.options.RawAddress), nil)

	case DecisionForeignOwnerOrEnv:
		r.logger.Errorf("Port occupied by a %s/%s server, address: %s", resp.Owner, resp.Env, r.options.RawAddress)
		return errors.NewConflictError(
			fmt.Sprintf("a %s/%s %s is running; close it before opening the editor", resp.Owner, resp.Env, r.options.Identity.App), nil).
			WithContext("owner", resp.Owner).
			WithContext("env", resp.Env)

	case DecisionOwnedZombie:
		return r.reclaimZombie(decision.PID)
	}

	return errors.NewInternalError("unknown reconciliation decision: "+string(decision.Kind), nil)
}

// reclaimZombie kills a prior run's sidecar tree and waits for the port to
// free before the caller spawns a replacement.
func (r *Reconciler) reclaimZombie(pid int) error {
	r.logger.Infof("Detected zombie %s/%s server, killing tree, PID: %d",
		r.options.Identity.Owner, r.options.Identity.Env, pid)

	if err := r.killTree(pid); err != nil {
		return errors.NewProcessError("failed to terminate zombie server", err).WithContext("pid", pid)
	}

	if running, err := r.isRunning(pid); err == nil && running {
		r.logger.Warnf("Zombie process still alive after kill, waiting for port, PID: %d", pid)
	}

	if !health.WaitForPortFree(r.prober, r.options.PortFreeTimeout, r.options.PollInterval) {
		return errors.NewTimeoutError(
			fmt.Sprintf("could not free port at %s after killing zombie", r.options.RawAddress), nil).
			WithContext("pid", pid).
			WithContext("timeout", r.options.PortFreeTimeout)
	}

	r.logger.Infof("Port freed after zombie kill, PID: %d", pid)
	return nil
}
