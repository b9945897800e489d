package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, opts ...Option) *Pool {
	t.Helper()
	p := NewPool(nil, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.Shutdown(ctx)
	})
	return p
}

func TestPoolRunsAllTasks(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(2), WithMaxWorkers(4), WithQueueSize(50))

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(40), n.Load())
}

func TestPoolSaturation(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(1), WithMaxWorkers(2), WithQueueSize(1))

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func() {
		started <- struct{}{}
		<-release
	}

	require.NoError(t, p.Submit(block)) // core worker
	<-started
	require.NoError(t, p.Submit(block)) // queued
	require.NoError(t, p.Submit(block)) // extra worker
	<-started
	assert.Equal(t, 2, p.Workers())

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolSaturated)
	close(release)
}

func TestPoolExtraWorkerExitsWhenIdle(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(1), WithMaxWorkers(2), WithQueueSize(1), WithKeepAlive(20*time.Millisecond))

	release := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-release }))
	require.NoError(t, p.Submit(func() { <-release }))
	require.NoError(t, p.Submit(func() { <-release }))
	assert.Equal(t, 2, p.Workers())

	close(release)
	assert.Eventually(t, func() bool { return p.Workers() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(1))

	require.NoError(t, p.Submit(func() { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(nil)
	p.Shutdown(context.Background())
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	p.Shutdown(context.Background())
}

func TestInvokeAll(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(3))

	boom := errors.New("boom")
	tasks := []func() (int, error){
		func() (int, error) { return 1, nil },
		func() (int, error) { return 0, boom },
		func() (int, error) { panic("bad chunk") },
		func() (int, error) { time.Sleep(10 * time.Millisecond); return 4, nil },
	}

	results, err := InvokeAll(context.Background(), p, tasks)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 1, results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorIs(t, results[2].Err, ErrTaskPanic)
	assert.Equal(t, 4, results[3].Value)
}

func TestInvokeAllRejected(t *testing.T) {
	p := NewPool(nil)
	p.Shutdown(context.Background())

	_, err := InvokeAll(context.Background(), p, []func() (int, error){
		func() (int, error) { return 1, nil },
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestInvokeAllFromWorkerDoesNotDeadlock(t *testing.T) {
	p := newTestPool(t, WithCoreWorkers(1), WithMaxWorkers(1), WithQueueSize(10))

	done := make(chan []Result[int], 1)
	require.NoError(t, p.Submit(func() {
		results, err := InvokeAll(context.Background(), p, []func() (int, error){
			func() (int, error) { return 1, nil },
			func() (int, error) { return 2, nil },
			func() (int, error) { return 3, nil },
		})
		if err == nil {
			done <- results
		}
	}))

	select {
	case results := <-done:
		require.Len(t, results, 3)
		assert.Equal(t, 3, results[2].Value)
	case <-time.After(2 * time.Second):
		t.Fatal("nested InvokeAll did not finish")
	}
}
