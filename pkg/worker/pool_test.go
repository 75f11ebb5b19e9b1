package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsParallelism(t *testing.T) {
	pool := NewPool(3)

	// Go blocks once all slots are taken, so the gate must open from the
	// side: hold the first wave until every slot is occupied, then drain.
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			<-started
		}
		close(release)
	}()

	for i := 0; i < 10; i++ {
		err := pool.Go(context.Background(), func() error {
			started <- struct{}{}
			<-release
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, pool.Wait())
	assert.Equal(t, int64(3), pool.Peak())
	assert.Equal(t, int64(0), pool.Active())
}

func TestPoolClampsBudgetToOne(t *testing.T) {
	pool := NewPool(0)

	var running int64
	for i := 0; i < 5; i++ {
		err := pool.Go(context.Background(), func() error {
			if atomic.AddInt64(&running, 1) > 1 {
				return errors.New("overlap")
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, pool.Wait())
	assert.Equal(t, int64(1), pool.Peak())
}

func TestPoolWaitReturnsFirstError(t *testing.T) {
	pool := NewPool(2)
	boom := errors.New("fold failed")

	require.NoError(t, pool.Go(context.Background(), func() error { return nil }))
	require.NoError(t, pool.Go(context.Background(), func() error { return boom }))
	require.NoError(t, pool.Go(context.Background(), func() error { return nil }))

	assert.Same(t, boom, pool.Wait())
}

func TestPoolGoHonorsContextWhileSaturated(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})

	require.NoError(t, pool.Go(context.Background(), func() error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Go(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, pool.Wait())
}
