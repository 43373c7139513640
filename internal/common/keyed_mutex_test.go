package common

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_MutualExclusionPerKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	const workers = 20
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "task:abc")
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()
			// Non-atomic increment; only mutual exclusion keeps it correct.
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_IndependentKeysDoNotContend(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	// Holding "a" must not delay "b".
	done := make(chan struct{})
	go func() {
		defer close(done)
		unlockB, err := km.Lock(ctx, "b")
		if err != nil {
			t.Error(err)
			return
		}
		unlockB()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent key blocked")
	}
}

func TestKeyedMutex_CancelledWaiterAcquiresNothing(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = km.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The holder can still release and the key can be re-acquired.
	unlock()
	unlock2, err := km.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}

func TestKeyedMutex_EntriesAreReleased(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		unlock, err := km.Lock(ctx, "ephemeral")
		require.NoError(t, err)
		unlock()
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}
