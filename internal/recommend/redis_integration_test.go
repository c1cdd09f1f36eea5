package recommend

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
)

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestService_WatchAndCacheAgainstRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("CI") == "" && !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	redisClient, err := cache.NewRedisClient(cache.RedisConfig{Addr: startRedis(t)})
	require.NoError(t, err)
	defer redisClient.Close()

	repo := newRepo(t)
	watcher := NewService(repo, Options{
		Cache:    NewResultCache(redisClient, nil, DefaultResultCacheConfig()),
		Notifier: redisClient,
	})
	require.NoError(t, watcher.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	importer := NewService(repo, Options{Notifier: redisClient})

	// The subscription registers asynchronously; re-import until the
	// watcher has picked up a notification.
	require.Eventually(t, func() bool {
		if _, err := importer.Import(context.Background(), seedCatalog(), nil); err != nil {
			return false
		}
		return watcher.Size() == 4
	}, 10*time.Second, 100*time.Millisecond)
	assert.Equal(t, importer.Version(), watcher.Version())

	criteria := catalog.Criteria{Fuel: "Dizel"}
	first, err := watcher.Recommend(context.Background(), criteria)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := watcher.Recommend(context.Background(), criteria)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Cars[0].ID, second.Cars[0].ID)

	require.NoError(t, importer.Delete(context.Background(), "egea"))
	assert.Eventually(t, func() bool { return watcher.Size() == 3 }, 10*time.Second, 50*time.Millisecond)

	third, err := watcher.Recommend(context.Background(), criteria)
	require.NoError(t, err)
	assert.False(t, third.Cached)

	cancel()
	assert.NoError(t, <-done)
}
