package supervisor

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
)

func currentProcess(t *testing.T) *os.Process {
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	return proc
}

func TestServerState_PutAndTake(t *testing.T) {
	state := NewServerState()
	assert.False(t, state.Held())

	proc := currentProcess(t)
	require.NoError(t, state.Put(proc))
	assert.True(t, state.Held())

	taken := state.Take()
	require.NotNil(t, taken)
	assert.Equal(t, proc.Pid, taken.Pid)
	assert.False(t, state.Held())
}

func TestServerState_PutNil(t *testing.T) {
	state := NewServerState()
	err := state.Put(nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestServerState_SecondPutConflicts(t *testing.T) {
	state := NewServerState()
	proc := currentProcess(t)

	require.NoError(t, state.Put(proc))
	err := state.Put(proc)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestServerState_TakeEmptyIsNil(t *testing.T) {
	state := NewServerState()
	assert.Nil(t, state.Take())

	// Take after a take is still nil
	require.NoError(t, state.Put(currentProcess(t)))
	assert.NotNil(t, state.Take())
	assert.Nil(t, state.Take())
}

func TestServerState_ConcurrentTakeHasOneWinner(t *testing.T) {
	state := NewServerState()
	require.NoError(t, state.Put(currentProcess(t)))

	const takers = 16
	var wg sync.WaitGroup
	results := make(chan *os.Process, takers)

	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- state.Take()
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for proc := range results {
		if proc != nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
