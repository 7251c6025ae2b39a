package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/missive/pkg/cache"
)

func TestGetOrSet(t *testing.T) {
	t.Parallel()

	t.Run("returns cached value on hit", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "cached", time.Minute))

		val, err := cache.GetOrSet(ctx, c, "key", func(context.Context) (string, time.Duration, error) {
			t.Fatal("fn must not run on a hit")
			return "", 0, nil
		})
		require.NoError(t, err)
		require.Equal(t, "cached", val)
	})

	t.Run("stores computed value on miss", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		val, err := cache.GetOrSet(ctx, c, "key", func(context.Context) (string, time.Duration, error) {
			return "computed", time.Minute, nil
		})
		require.NoError(t, err)
		require.Equal(t, "computed", val)

		got, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "computed", got)
	})

	t.Run("does not cache errors", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		boom := errors.New("boom")
		_, err := cache.GetOrSet(context.Background(), c, "key", func(context.Context) (string, time.Duration, error) {
			return "", 0, boom
		})
		require.ErrorIs(t, err, boom)
		require.Zero(t, c.Len())
	})

	t.Run("collapses concurrent misses", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		var calls atomic.Int32
		release := make(chan struct{})
		fn := func(context.Context) (string, time.Duration, error) {
			calls.Add(1)
			<-release
			return "v", time.Minute, nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				val, err := cache.GetOrSet(context.Background(), c, "key", fn)
				require.NoError(t, err)
				require.Equal(t, "v", val)
			}()
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("cancelled first caller does not fail waiters", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		var once sync.Once
		started := make(chan struct{})
		release := make(chan struct{})
		fn := func(ctx context.Context) (string, time.Duration, error) {
			once.Do(func() { close(started) })
			<-release
			if err := ctx.Err(); err != nil {
				return "", 0, err
			}
			return "v", time.Minute, nil
		}

		firstCtx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := cache.GetOrSet(firstCtx, c, "key", fn)
			firstErr <- err
		}()
		<-started

		second := make(chan string, 1)
		go func() {
			val, err := cache.GetOrSet(context.Background(), c, "key", fn)
			require.NoError(t, err)
			second <- val
		}()

		cancel()
		require.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		require.Equal(t, "v", <-second)

		got, err := c.Get(context.Background(), "key")
		require.NoError(t, err)
		require.Equal(t, "v", got)
	})

	t.Run("separate caches do not share flights", func(t *testing.T) {
		t.Parallel()

		a := cache.NewMemory[string]()
		defer a.Close()
		b := cache.NewMemory[string]()
		defer b.Close()

		ctx := context.Background()
		va, err := cache.GetOrSet(ctx, a, "key", func(context.Context) (string, time.Duration, error) { return "a", 0, nil })
		require.NoError(t, err)
		vb, err := cache.GetOrSet(ctx, b, "key", func(context.Context) (string, time.Duration, error) { return "b", 0, nil })
		require.NoError(t, err)

		require.Equal(t, "a", va)
		require.Equal(t, "b", vb)
	})
}
