package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
)

func storeConfigs() map[string]Config {
	lru := DefaultConfig()
	lru.Store = StoreLRU
	lru.MaxEntries = 1000

	ttl := DefaultConfig()
	ttl.Store = StoreTTL
	ttl.TTL = cache.Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                5 * time.Second,
		EvictionPercentage: 10,
	}

	return map[string]Config{
		"map": DefaultConfig(),
		"lru": lru,
		"ttl": ttl,
	}
}

// TestConcurrentAccess hammers one cached repository from many goroutines;
// each distinct id must reach the base repository exactly once.
func TestConcurrentAccess(t *testing.T) {
	for name, config := range storeConfigs() {
		t.Run(name, func(t *testing.T) {
			mockRepo := newMockUserRepository()
			cachedRepo := newCachedUsers(t, config, mockRepo)

			for i := 0; i < 100; i++ {
				mockRepo.Create(context.Background(), User{
					ID:    fmt.Sprintf("user-%d", i),
					Name:  fmt.Sprintf("User %d", i),
					Email: fmt.Sprintf("user%d@example.com", i),
				})
			}

			ctx := context.Background()
			const numGoroutines = 50
			const operationsPerGoroutine = 20

			var wg sync.WaitGroup
			errs := make(chan error, numGoroutines*operationsPerGoroutine)

			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(workerID int) {
					defer wg.Done()
					for j := 0; j < operationsPerGoroutine; j++ {
						userID := fmt.Sprintf("user-%d", (workerID*operationsPerGoroutine+j)%100)
						if _, err := cachedRepo.GetByID(ctx, userID); err != nil {
							errs <- fmt.Errorf("worker %d operation %d GetByID failed: %v", workerID, j, err)
						}
						if j%5 == 0 {
							if _, _, err := cachedRepo.List(ctx); err != nil {
								errs <- fmt.Errorf("worker %d operation %d List failed: %v", workerID, j, err)
							}
						}
					}
				}(i)
			}

			wg.Wait()
			close(errs)

			for err := range errs {
				assert.NoError(t, err)
			}

			assert.Equal(t, 100, mockRepo.getCallCount("GetByID"), "one GetByID per distinct id")
			assert.Equal(t, 1, mockRepo.getCallCount("List"))
		})
	}
}

func TestMemoizeConcurrentMisses(t *testing.T) {
	container, err := NewContainerWithDefaults()
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	m, err := Memoize(container, func(_ context.Context, _ any, args ...any) (string, error) {
		calls.Add(1)
		<-release
		return fmt.Sprint(args...), nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Call(context.Background(), "slow")
			assert.NoError(t, err)
			assert.Equal(t, "slow", v)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent misses share one call")
}

func BenchmarkCachedVsBaseRepository(b *testing.B) {
	ctx := context.Background()
	mockRepo := newMockUserRepository()
	mockRepo.Create(ctx, User{ID: "bench", Name: "Bench"})

	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatal(err)
	}
	cachedRepo, err := NewCachedRepository[User](container, mockRepo)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("base", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = mockRepo.GetByID(ctx, "bench")
		}
	})

	b.Run("cached", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = cachedRepo.GetByID(ctx, "bench")
		}
	})
}

func BenchmarkKeyDerivation(b *testing.B) {
	args := []any{"user-123", 42, true, map[string]any{"status": "active", "limit": 10}}
	serializer := cache.NewKeySerializer(cache.NewMapCache[int]())

	b.Run("identity", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = serializer.Key(nil, args...)
		}
	})

	b.Run("value", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = cache.ValueKey(nil, args...)
		}
	})
}

func BenchmarkConcurrentMemoizedAccess(b *testing.B) {
	for name, config := range storeConfigs() {
		b.Run(name, func(b *testing.B) {
			container, err := NewContainer(config)
			if err != nil {
				b.Fatal(err)
			}
			m, err := Memoize(container, func(_ context.Context, _ any, args ...any) (int, error) {
				return args[0].(int) * 2, nil
			}, memoize.WithArity(1))
			if err != nil {
				b.Fatal(err)
			}

			ctx := context.Background()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					_, _ = m.Call(ctx, i%100)
					i++
				}
			})
		})
	}
}
