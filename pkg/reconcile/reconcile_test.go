package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
	"github.com/slate-tools/slate-shell-go/pkg/health"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
)

var testIdentity = Identity{App: "slate-server", Owner: "tauri", Env: "prod"}

func testLogger() logging.Logger {
	return logging.NewLogger("", logging.LogFuncs{})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		resp           *health.HealthResponse
		rawConnectable bool
		want           Decision
	}{
		{
			name: "probe fails, raw connect fails: port free",
			want: Decision{Kind: DecisionPortFree},
		},
		{
			name:           "probe fails, raw connect succeeds: foreign application",
			rawConnectable: true,
			want:           Decision{Kind: DecisionForeignApplication},
		},
		{
			name: "different app name is foreign regardless of owner and env",
			resp: &health.HealthResponse{App: "other-app", Owner: "tauri", Env: "prod", PID: 99},
			want: Decision{Kind: DecisionForeignApplication},
		},
		{
			name: "different app name with arbitrary identity",
			resp: &health.HealthResponse{App: "other-app", Owner: "x", Env: "y", PID: 99},
			want: Decision{Kind: DecisionForeignApplication},
		},
		{
			name: "same app, different owner",
			resp: &health.HealthResponse{App: "slate-server", Owner: "cli", Env: "prod", PID: 77},
			want: Decision{Kind: DecisionForeignOwnerOrEnv},
		},
		{
			name: "same app, different env",
			resp: &health.HealthResponse{App: "slate-server", Owner: "tauri", Env: "dev", PID: 77},
			want: Decision{Kind: DecisionForeignOwnerOrEnv},
		},
		{
			name: "exact identity match: owned zombie with reported pid",
			resp: &health.HealthResponse{App: "slate-server", Owner: "tauri", Env: "prod", PID: 4321},
			want: Decision{Kind: DecisionOwnedZombie, PID: 4321},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(testIdentity, tt.resp, tt.rawConnectable)
			assert.Equal(t, tt.want, got)
		})
	}
}

// scriptedProber returns the scripted responses in order; the last entry
// repeats forever.
type scriptedProber struct {
	responses []*health.HealthResponse
	calls     int
}

func (p *scriptedProber) Probe() *health.HealthResponse {
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return p.responses[i]
}

func newTestReconciler(prober health.Prober) *Reconciler {
	return NewReconciler(Options{
		Identity:          testIdentity,
		RawAddress:        "127.0.0.1:8000",
		RawConnectTimeout: 10 * time.Millisecond,
		PortFreeTimeout:   100 * time.Millisecond,
		PollInterval:      5 * time.Millisecond,
	}, prober, testLogger())
}

func TestReconcile_PortFree(t *testing.T) {
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{nil}})

	killed := false
	r.rawConnect = func(string, time.Duration) bool { return false }
	r.killTree = func(int) error { killed = true; return nil }

	err := r.Reconcile()
	require.NoError(t, err)
	assert.False(t, killed, "no kill step on a free port")
}

func TestReconcile_ForeignOccupantOnRawPort(t *testing.T) {
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{nil}})

	killed := false
	r.rawConnect = func(string, time.Duration) bool { return true }
	r.killTree = func(int) error { killed = true; return nil }

	err := r.Reconcile()
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.False(t, killed)
}

func TestReconcile_ForeignApplication(t *testing.T) {
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{
		{App: "other-app", Owner: "x", Env: "y", PID: 99},
	}})

	killed := false
	r.killTree = func(int) error { killed = true; return nil }

	err := r.Reconcile()
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.False(t, killed, "foreign occupants are never killed")
}

func TestReconcile_ForeignOwnerOrEnv(t *testing.T) {
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{
		{App: "slate-server", Owner: "cli", Env: "dev", PID: 55},
	}})

	killed := false
	r.killTree = func(int) error { killed = true; return nil }

	err := r.Reconcile()
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.False(t, killed)
}

func TestReconcile_OwnedZombieReclaimed(t *testing.T) {
	// Zombie answers once, then the port goes quiet after the kill
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{
		{App: "slate-server", Owner: "tauri", Env: "prod", PID: 4321},
		nil,
	}})

	var killedPID int
	r.killTree = func(pid int) error { killedPID = pid; return nil }
	r.isRunning = func(pid int) (bool, error) { return false, nil }

	err := r.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 4321, killedPID)
}

func TestReconcile_ZombieKillFails(t *testing.T) {
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{
		{App: "slate-server", Owner: "tauri", Env: "prod", PID: 4321},
	}})

	r.killTree = func(int) error {
		return errors.NewProcessError("access denied", nil)
	}

	err := r.Reconcile()
	require.Error(t, err)
	assert.True(t, errors.IsProcessError(err))
}

func TestReconcile_PortNeverFreesAfterKill(t *testing.T) {
	// Zombie keeps answering even after the kill reports success
	r := newTestReconciler(&scriptedProber{responses: []*health.HealthResponse{
		{App: "slate-server", Owner: "tauri", Env: "prod", PID: 4321},
	}})

	r.killTree = func(int) error { return nil }
	r.isRunning = func(int) (bool, error) { return true, nil }

	err := r.Reconcile()
	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
}
