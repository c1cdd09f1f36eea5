package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
)

func newRepo(t *testing.T) *storage.CarRepository {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(ctx, db))

	return storage.NewCarRepository(db, storage.DriverSQLite)
}

func seedCatalog() []catalog.Entry {
	adas := true
	return []catalog.Entry{
		{
			ID: "togg", Brand: "Togg", Model: "T10X", Body: "SUV", Fuel: "Elektrik", PriceTRY: 1_200_000,
			Tags:  []string{"şehir", "uzun yolculuk", "ADAS"},
			Specs: &catalog.Specs{Safety: &catalog.SafetySpecs{ADAS: &adas}},
		},
		{ID: "egea", Brand: "Fiat", Model: "Egea", Body: "Sedan", Fuel: "Dizel", PriceTRY: 900_000, Tags: []string{"ekonomik"}},
		{ID: "clio", Brand: "Renault", Model: "Clio", Body: "Hatchback", Fuel: "Benzin", PriceTRY: 850_000, Tags: []string{"bagaj"}},
		{ID: "chr", Brand: "Toyota", Model: "C-HR", Body: "Crossover", Fuel: "Hibrit", PriceTRY: 1_400_000},
	}
}

func newService(t *testing.T, opts Options) (*Service, *storage.CarRepository) {
	t.Helper()
	repo := newRepo(t)
	svc := NewService(repo, opts)

	n, err := svc.Import(context.Background(), seedCatalog(), nil)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return svc, repo
}

func TestService_ImportEnrichesTags(t *testing.T) {
	svc, repo := newService(t, Options{})
	ctx := context.Background()

	togg, err := repo.GetByID(ctx, "togg")
	require.NoError(t, err)
	assert.Equal(t, []string{"Şehir içi", "Uzun yol", "Güvenlik", "Teknoloji/ADAS"}, togg.Tags)

	// "bagaj" carries no signal and the Clio has no specs to suggest from.
	clio, err := repo.GetByID(ctx, "clio")
	require.NoError(t, err)
	assert.Equal(t, []string{}, clio.Tags)

	assert.Equal(t, 4, svc.Size())
	assert.NotEmpty(t, svc.Version())
}

func TestService_Recommend(t *testing.T) {
	svc, _ := newService(t, Options{})

	result, err := svc.Recommend(context.Background(), catalog.Criteria{
		Budget: catalog.Budget(1_100_000),
		Body:   "SUV",
		Fuel:   "Elektrik",
		Usage:  []string{"Şehir içi"},
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Cars)
	assert.Equal(t, "togg", result.Cars[0].ID)
	assert.Equal(t, 100+80+80+20, result.Cars[0].MatchScore)
	assert.Equal(t, matching.TierThreshold, result.Tier)
	assert.Equal(t, svc.Version(), result.CatalogVersion)
	assert.False(t, result.Cached)
	assert.Contains(t, result.Summary, "araç bulundu")
	assert.Contains(t, result.Summary, "Kasa: SUV")
}

func TestService_RecommendRejectsInvalidBudget(t *testing.T) {
	svc, _ := newService(t, Options{})

	_, err := svc.Recommend(context.Background(), catalog.Criteria{Budget: catalog.Budget(-1)})
	assert.ErrorIs(t, err, catalog.ErrNegativeBudget)
}

func TestService_RecommendUsesCache(t *testing.T) {
	mem := cache.NewMemoryClient(100, time.Hour)
	defer mem.Close()

	resultCache := NewResultCache(mem, nil, DefaultResultCacheConfig())
	svc, _ := newService(t, Options{Cache: resultCache})
	ctx := context.Background()
	criteria := catalog.Criteria{Fuel: "Dizel"}

	first, err := svc.Recommend(ctx, criteria)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, mem.Len())

	second, err := svc.Recommend(ctx, criteria)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Summary, second.Summary)
	require.Len(t, second.Cars, len(first.Cars))
	assert.Equal(t, first.Cars[0].ID, second.Cars[0].ID)
}

func TestService_ReloadInvalidatesCache(t *testing.T) {
	mem := cache.NewMemoryClient(100, time.Hour)
	defer mem.Close()

	svc, repo := newService(t, Options{Cache: NewResultCache(mem, nil, DefaultResultCacheConfig())})
	ctx := context.Background()

	_, err := svc.Recommend(ctx, catalog.Criteria{Body: "Sedan"})
	require.NoError(t, err)
	before := svc.Version()

	extra := catalog.Entry{ID: "passat", Brand: "Volkswagen", Model: "Passat", Body: "Sedan", Fuel: "Dizel", PriceTRY: 2_500_000}
	require.NoError(t, repo.Upsert(ctx, &extra))
	require.NoError(t, svc.Reload(ctx))

	assert.NotEqual(t, before, svc.Version())
	assert.Equal(t, 0, mem.Len())

	result, err := svc.Recommend(ctx, catalog.Criteria{Body: "Sedan"})
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 5, svc.Size())
}

func TestService_ImportReportsProgress(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, Options{})

	var calls [][2]int
	_, err := svc.Import(context.Background(), seedCatalog()[:2], func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestService_ImportStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := svc.Import(ctx, seedCatalog(), nil)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestService_EmptyCatalog(t *testing.T) {
	svc := NewService(newRepo(t), Options{})
	require.NoError(t, svc.Reload(context.Background()))

	result, err := svc.Recommend(context.Background(), catalog.Criteria{Body: "SUV"})
	require.NoError(t, err)
	assert.Empty(t, result.Cars)
	assert.NotNil(t, result.Cars)
	assert.Equal(t, "0 araç bulundu | Kasa: SUV", result.Summary)
}

func TestService_CarsAndCar(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	cars, err := svc.Cars(ctx, storage.CarQuery{Fuel: "Hibrit"})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "chr", cars[0].ID)

	_, err = svc.Car(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_DeleteReloadsSnapshot(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()
	before := svc.Version()
	size := svc.Size()

	require.NoError(t, svc.Delete(ctx, "chr"))
	assert.Equal(t, size-1, svc.Size())
	assert.NotEqual(t, before, svc.Version())

	assert.ErrorIs(t, svc.Delete(ctx, "chr"), storage.ErrNotFound)
}

func TestService_WatchReloadsOnNotification(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer redisClient.Close()

	repo := newRepo(t)
	watcher := NewService(repo, Options{Notifier: redisClient})
	require.NoError(t, watcher.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	// Give the subscription time to register before publishing.
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("*")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	importer := NewService(repo, Options{Notifier: redisClient})
	_, err = importer.Import(context.Background(), seedCatalog(), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return watcher.Size() == 4 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestResultCache_KeyIsOrderSensitive(t *testing.T) {
	c := NewResultCache(nil, nil, DefaultResultCacheConfig())

	a := catalog.Criteria{Usage: []string{"Şehir içi", "Uzun yol"}}
	b := catalog.Criteria{Usage: []string{"Uzun yol", "Şehir içi"}}

	assert.Equal(t, c.Key(a, "v1"), c.Key(a, "v1"))
	assert.NotEqual(t, c.Key(a, "v1"), c.Key(b, "v1"))
	assert.NotEqual(t, c.Key(a, "v1"), c.Key(a, "v2"))
	assert.Contains(t, c.Key(a, "v1"), "rec:v1:")
}

func TestResultCache_DisabledOrNilClient(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(nil, nil, ResultCacheConfig{})

	require.NoError(t, c.Set(ctx, catalog.Criteria{}, "v", &Result{}))
	_, ok := c.Get(ctx, catalog.Criteria{}, "v")
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}

func TestResultCache_DropsUnreadableEntry(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(100, time.Hour)
	defer mem.Close()

	c := NewResultCache(mem, nil, DefaultResultCacheConfig())
	criteria := catalog.Criteria{Body: "SUV"}
	key := c.Key(criteria, "v1")
	require.NoError(t, mem.Set(ctx, key, []byte("{not json"), time.Minute))

	_, ok := c.Get(ctx, criteria, "v1")
	assert.False(t, ok)

	_, err := mem.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
