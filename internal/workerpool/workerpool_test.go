package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *Pool {
	return New("test", 4, func() interface{} { return nil })
}

func TestRunsClosuresInParallel(t *testing.T) {
	p := fixture()
	defer p.Close()

	var n int32
	start := time.Now()
	f1 := p.Spawn(func(interface{}) error {
		time.Sleep(110 * time.Millisecond)
		atomic.AddInt32(&n, 1)
		return nil
	})
	f2 := p.Spawn(func(interface{}) error {
		time.Sleep(110 * time.Millisecond)
		atomic.AddInt32(&n, 1)
		return nil
	})

	require.NoError(t, f1.Wait())
	require.NoError(t, f2.Wait())
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.EqualValues(t, 2, atomic.LoadInt32(&n))
}

func TestFutureCarriesJobError(t *testing.T) {
	p := fixture()
	defer p.Close()

	wantErr := errors.New("boom")
	f := p.Spawn(func(interface{}) error { return wantErr })

	err := f.Wait()
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, ErrKindValue, jobErr.Kind)
	assert.ErrorIs(t, err, wantErr)
}

func TestPanicIsIsolatedPerJob(t *testing.T) {
	p := fixture()
	defer p.Close()

	panicking := p.Spawn(func(interface{}) error { panic("kaboom") })
	var jobErr *JobError
	require.ErrorAs(t, panicking.Wait(), &jobErr)
	assert.Equal(t, ErrKindPanic, jobErr.Kind)

	// the panic must not have killed the worker: the next job still runs.
	ok := p.Spawn(func(interface{}) error { return nil })
	assert.NoError(t, ok.Wait())
}

func TestPerWorkerStateIsIsolated(t *testing.T) {
	p := New("test", 1, func() interface{} {
		n := 5
		return &n
	})
	defer p.Close()

	var mu sync.Mutex
	observed := 0
	f := p.Spawn(func(state interface{}) error {
		n := state.(*int)
		*n++
		mu.Lock()
		observed = *n
		mu.Unlock()
		return nil
	})
	require.NoError(t, f.Wait())
	assert.Equal(t, 6, observed)
}

func TestDroppedFutureDoesNotBlockWorker(t *testing.T) {
	p := fixture()
	defer p.Close()

	for i := 0; i < 10; i++ {
		p.Spawn(func(interface{}) error { return nil })
	}
	// if the worker blocked trying to deliver a result nobody reads,
	// this final job would never run.
	f := p.Spawn(func(interface{}) error { return nil })
	require.NoError(t, f.Wait())
}
