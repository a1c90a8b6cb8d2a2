package buildservice

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrdered_PreservesOrderAndBoundsConcurrency(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	var inFlight, peak atomic.Int32

	res := RunOrdered(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		if n%4 == 0 {
			return "", fmt.Errorf("boom %d", n)
		}
		return fmt.Sprint(n), nil
	})

	require.Len(t, res, len(items))
	for i, r := range res {
		if items[i]%4 == 0 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprint(items[i]), r.Value)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunOrdered_Empty(t *testing.T) {
	assert.Nil(t, RunOrdered(context.Background(), []int(nil), 4, func(context.Context, int) (int, error) { return 0, nil }))
}

func TestRunOrdered_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var called atomic.Int32
	res := RunOrdered(ctx, []int{1, 2, 3}, 0, func(context.Context, int) (int, error) {
		called.Add(1)
		return 0, nil
	})
	for _, r := range res {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, called.Load())
}
