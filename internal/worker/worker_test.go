package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academichub/backend-go/internal/testutil"
)

func TestNewPool(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	require.NotNil(t, pool)
	require.NotNil(t, pool.Context())
}

func TestPoolSubmit(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	var counter int32
	for i := 0; i < 10; i++ {
		ok := pool.Submit("count", func(ctx context.Context) error {
			atomic.AddInt32(&counter, 1)
			return nil
		})
		require.True(t, ok)
	}

	assert.True(t, pool.Shutdown(5*time.Second))
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))
}

func TestPoolSubmitWithTimeout(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	deadline := make(chan bool, 1)
	pool.SubmitWithTimeout("deadline", time.Second, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadline <- ok
		return nil
	})

	assert.True(t, <-deadline)
	assert.True(t, pool.Shutdown(5*time.Second))
}

func TestPoolSubmitWithTimeout_Expires(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	result := make(chan error, 1)
	pool.SubmitWithTimeout("slow", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})

	assert.ErrorIs(t, <-result, context.DeadlineExceeded)
	pool.Shutdown(time.Second)
}

func TestPoolSurvivesFailingTasks(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	var ran int32
	pool.Submit("error", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return errors.New("boom")
	})
	pool.Submit("panic", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		panic("boom")
	})

	assert.True(t, pool.Shutdown(5*time.Second))
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestPoolShutdown(t *testing.T) {
	pool := NewPool(testutil.TestLogger())
	ctx := pool.Context()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done")
	default:
	}

	pool.Shutdown(time.Second)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context should be done after shutdown")
	}

	ok := pool.Submit("late", func(ctx context.Context) error { return nil })
	assert.False(t, ok)
}

func TestPoolShutdown_Timeout(t *testing.T) {
	pool := NewPool(testutil.TestLogger())

	release := make(chan struct{})
	defer close(release)
	pool.Submit("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	assert.False(t, pool.Shutdown(20*time.Millisecond))
}
