package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectionManager_ConcurrentCallersShareOneDial(t *testing.T) {
	var dialCount int32
	backend := &stubBackend{}

	manager := NewConnectionManager(func(ctx context.Context) (RetrievalBackend, error) {
		atomic.AddInt32(&dialCount, 1)
		time.Sleep(50 * time.Millisecond) // keep the attempt in flight
		return backend, nil
	})

	const callers = 3
	handles := make([]RetrievalBackend, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := manager.Get(context.Background())
			require.NoError(t, err)
			handles[i] = got
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&dialCount))
	for _, h := range handles {
		require.Same(t, backend, h)
	}
}

func TestConnectionManager_MemoizesAcrossCalls(t *testing.T) {
	var dialCount int32
	manager := NewConnectionManager(func(ctx context.Context) (RetrievalBackend, error) {
		atomic.AddInt32(&dialCount, 1)
		return &stubBackend{}, nil
	})

	first, err := manager.Get(context.Background())
	require.NoError(t, err)
	second, err := manager.Get(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, dialCount)
}

func TestConnectionManager_FailedAttemptIsNotCached(t *testing.T) {
	var dialCount int32
	dialErr := errors.New("backend down")

	manager := NewConnectionManager(func(ctx context.Context) (RetrievalBackend, error) {
		if atomic.AddInt32(&dialCount, 1) == 1 {
			return nil, dialErr
		}
		return &stubBackend{}, nil
	})

	_, err := manager.Get(context.Background())
	require.ErrorIs(t, err, dialErr)

	backend, err := manager.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, backend)
	require.EqualValues(t, 2, dialCount)
}

func TestConnectionManager_WaitersObserveAttemptFailure(t *testing.T) {
	dialErr := errors.New("backend down")
	started := make(chan struct{})
	release := make(chan struct{})

	manager := NewConnectionManager(func(ctx context.Context) (RetrievalBackend, error) {
		close(started)
		<-release
		return nil, dialErr
	})

	errs := make(chan error, 2)
	go func() {
		_, err := manager.Get(context.Background())
		errs <- err
	}()
	<-started
	go func() {
		_, err := manager.Get(context.Background())
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond) // let the second caller park on the attempt
	close(release)

	require.ErrorIs(t, <-errs, dialErr)
	require.ErrorIs(t, <-errs, dialErr)
}
