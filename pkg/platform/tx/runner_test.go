package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hirelane/pkg/domain-errors"
)

func TestMemoryRunner_PropagatesError(t *testing.T) {
	runner := NewMemoryRunner()
	sentinel := errors.New("boom")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
}

func TestMemoryRunner_SerializesCallers(t *testing.T) {
	runner := NewMemoryRunner()

	var (
		inFlight int
		maxSeen  int
		mu       sync.Mutex
		wg       sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.RunInTx(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > maxSeen {
					maxSeen = inFlight
				}
				mu.Unlock()

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "transactions must not overlap")
}

func TestMemoryRunner_RejectsCancelledContext(t *testing.T) {
	runner := NewMemoryRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.RunInTx(ctx, func(ctx context.Context) error { return nil })

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestMemoryRunner_NestedCallJoinsAmbientTransaction(t *testing.T) {
	runner := NewMemoryRunner()

	var innerRan bool
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(ctx context.Context) error {
			innerRan = true
			return nil
		})
	})

	require.NoError(t, err)
	assert.True(t, innerRan, "nested RunInTx must run, not deadlock")
}

func TestMemoryRunner_NestedErrorReachesOuterCaller(t *testing.T) {
	runner := NewMemoryRunner()
	sentinel := errors.New("inner failure")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(ctx context.Context) error {
			return sentinel
		})
	})

	require.ErrorIs(t, err, sentinel)
}
