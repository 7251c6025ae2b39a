// Package cache provides a generic key-value cache with TTL support and two
// backends: an in-process LRU (Memory) and Redis.
//
// TTL passed to Set:
//
//	> 0  entry expires after the duration
//	  0  the cache's default TTL applies
//	< 0  entry never expires
//
// GetOrSet loads a missing value once per key even when many goroutines
// miss at the same time. The template sources use it to keep one backend
// call in flight per template:
//
//	c := cache.NewMemory[string](cache.WithDefaultTTL(5 * time.Minute))
//	defer c.Close()
//
//	src, err := cache.GetOrSet(ctx, c, "fs:welcome.md", func(ctx context.Context) (string, time.Duration, error) {
//		src, err := backend.Load(ctx, "welcome.md")
//		return src, 0, err
//	})
package cache
