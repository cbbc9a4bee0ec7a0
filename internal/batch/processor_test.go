package batch

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

type recordingObserver struct {
	mu                       sync.Mutex
	total, succeeded, failed int
	calls                    int
}

func (o *recordingObserver) ObserveBatch(total, succeeded, failed int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.total, o.succeeded, o.failed = total, succeeded, failed
}

func TestItemStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SUCCESS", ItemStatusSuccess.String())
	assert.Equal(t, "FAILED", ItemStatusFailed.String())
	assert.Equal(t, "TIMEOUT", ItemStatusTimeout.String())
	assert.Equal(t, "CANCELLED", ItemStatusCancelled.String())
	assert.Equal(t, "UNKNOWN(9)", ItemStatus(9).String())
}

func TestProcess_AllSuccessInOrder(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int](WithConcurrency(3))
	items := []int{5, 4, 3, 2, 1}

	res, err := p.Process(context.Background(), items, func(_ context.Context, v int) (int, error) {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10, nil
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 5)
	assert.Equal(t, 5, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i]*10, r.Result)
		assert.Equal(t, ItemStatusSuccess, r.Status)
	}
}

func TestProcess_FailuresAreIsolated(t *testing.T) {
	t.Parallel()
	p := NewProcessor[string, string]()
	boom := errors.New("boom")

	res, err := p.Process(context.Background(), []string{"ok", "bad", "ok"}, func(_ context.Context, s string) (string, error) {
		if s == "bad" {
			return "", boom
		}
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.ErrorIs(t, res.Results[1].Error, boom)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)
}

func TestProcess_EmptyAndNilFunc(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int]()

	res, err := p.Process(context.Background(), nil, func(context.Context, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	_, err = p.Process(context.Background(), []int{1}, nil)
	assert.Error(t, err)
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	t.Parallel()
	var current, peak int32
	p := NewProcessor[int, int](WithConcurrency(2))

	_, err := p.Process(context.Background(), []int{1, 2, 3, 4, 5, 6}, func(_ context.Context, v int) (int, error) {
		c := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			old := atomic.LoadInt32(&peak)
			if c <= old || atomic.CompareAndSwapInt32(&peak, old, c) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return v, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcess_ItemTimeoutWithUncooperativeFunc(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int](WithItemTimeout(10*time.Millisecond), WithConcurrency(2))
	release := make(chan struct{})
	defer close(release)

	res, err := p.Process(context.Background(), []int{1, 2}, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			<-release
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ItemStatusSuccess, res.Results[0].Status)
	assert.Equal(t, ItemStatusTimeout, res.Results[1].Status)
	assert.ErrorIs(t, res.Results[1].Error, context.DeadlineExceeded)
}

func TestProcess_TimedOutItemKeepsSlotUntilReturn(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int](WithItemTimeout(10*time.Millisecond), WithConcurrency(1))
	var stuckStarted, stuckReturned, overlapped atomic.Bool
	release := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	res, err := p.Process(context.Background(), []int{1, 2}, func(_ context.Context, v int) (int, error) {
		if v == 1 {
			stuckStarted.Store(true)
			<-release
			stuckReturned.Store(true)
			return v, nil
		}
		if stuckStarted.Load() && !stuckReturned.Load() {
			overlapped.Store(true)
		}
		return v, nil
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, ItemStatusTimeout, res.Results[0].Status)
	assert.Equal(t, ItemStatusSuccess, res.Results[1].Status)
	assert.False(t, overlapped.Load())
}

func TestProcess_PanicIsContained(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int]()

	res, err := p.Process(context.Background(), []int{1, 2}, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			panic("kaboom")
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ItemStatusSuccess, res.Results[0].Status)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)

	var pe *PanicError
	require.ErrorAs(t, res.Results[1].Error, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestProcess_CancelledContext(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, []int{1, 2, 3}, func(context.Context, int) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, res.FailureCount)
	for _, r := range res.Results {
		assert.Equal(t, ItemStatusCancelled, r.Status)
	}
}

func TestProcess_ObserverNotified(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	p := NewProcessor[int, int](WithObserver(obs))

	_, err := p.Process(context.Background(), []int{1, -1, 2}, func(_ context.Context, v int) (int, error) {
		if v < 0 {
			return 0, errors.New("negative")
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, obs.calls)
	assert.Equal(t, 3, obs.total)
	assert.Equal(t, 2, obs.succeeded)
	assert.Equal(t, 1, obs.failed)
}

func TestShutdown_RejectsNewBatches(t *testing.T) {
	t.Parallel()
	p := NewProcessor[int, int]()
	require.NoError(t, p.Shutdown(context.Background()))

	_, err := p.Process(context.Background(), []int{1}, func(context.Context, int) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

//Personal.AI order the ending
