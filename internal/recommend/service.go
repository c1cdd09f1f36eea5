// Package recommend serves car recommendations over the stored catalog.
package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/tags"
)

// CatalogChannel is the pub/sub channel announcing catalog changes.
const CatalogChannel = "catalog.updated"

// Repository is the catalog storage the service reads from and imports into.
type Repository interface {
	ListEntries(ctx context.Context) ([]catalog.Entry, error)
	List(ctx context.Context, q storage.CarQuery) ([]*storage.CarRecord, error)
	GetByID(ctx context.Context, id string) (*storage.CarRecord, error)
	Upsert(ctx context.Context, entry *catalog.Entry) error
	Delete(ctx context.Context, id string) error
}

// Result is a ranked recommendation list with its summary line.
type Result struct {
	Cars           []catalog.ScoredEntry `json:"cars"`
	Summary        string                `json:"summary"`
	Tier           matching.Tier         `json:"tier"`
	Criteria       catalog.Criteria      `json:"criteria"`
	CatalogVersion string                `json:"catalogVersion"`
	Cached         bool                  `json:"cached"`
	LatencyMs      int64                 `json:"latencyMs"`
}

// ProgressFunc reports import progress.
type ProgressFunc func(done, total int)

// Options configures a Service.
type Options struct {
	Matching matching.Config
	Cache    *ResultCache
	Notifier cache.Notifier
	Logger   *observability.Logger
}

// Service ranks the catalog snapshot against buyer criteria.
type Service struct {
	repo     Repository
	cache    *ResultCache
	notifier cache.Notifier
	logger   *observability.Logger
	cfg      matching.Config

	mu      sync.RWMutex
	matcher *matching.Matcher
	version string
}

// NewService creates a service. Call Reload before serving requests.
func NewService(repo Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Service{
		repo:     repo,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		logger:   logger.WithOperation("recommend"),
		cfg:      opts.Matching,
		matcher:  matching.NewMatcher(nil, opts.Matching),
	}
}

// Reload replaces the catalog snapshot with the repository contents and
// invalidates cached results.
func (s *Service) Reload(ctx context.Context) error {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	enriched := make([]catalog.Entry, len(entries))
	for i, e := range entries {
		enriched[i] = tags.EnrichEntry(e)
	}

	version, err := catalogVersion(enriched)
	if err != nil {
		return err
	}

	matcher := matching.NewMatcher(enriched, s.cfg)

	s.mu.Lock()
	s.matcher = matcher
	s.version = version
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to invalidate recommendation cache")
		}
	}

	s.logger.Info().
		Int("cars", len(enriched)).
		Str("catalog_version", version).
		Msg("Catalog loaded")
	return nil
}

// Recommend ranks the catalog against criteria.
func (s *Service) Recommend(ctx context.Context, criteria catalog.Criteria) (*Result, error) {
	start := time.Now()

	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matcher, version := s.matcher, s.version
	s.mu.RUnlock()

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, criteria, version); ok {
			cached.Cached = true
			cached.LatencyMs = time.Since(start).Milliseconds()
			return cached, nil
		}
	}

	cars, tier := matcher.FilterWithTier(criteria)
	result := &Result{
		Cars:           cars,
		Summary:        matching.GetFilterSummary(criteria, cars),
		Tier:           tier,
		Criteria:       criteria,
		CatalogVersion: version,
	}

	if s.cache != nil {
		// A cache failure does not fail the request.
		_ = s.cache.Set(ctx, criteria, version, result)
	}

	result.LatencyMs = time.Since(start).Milliseconds()

	s.logger.WithContext(ctx).Debug().
		Str("summary", result.Summary).
		Str("tier", string(tier)).
		Strs("usage", criteria.Usage).
		Strs("priorities", criteria.Priorities).
		Int("count", len(cars)).
		Int64("latency_ms", result.LatencyMs).
		Msg("Recommendation served")

	return result, nil
}

// Import enriches and stores entries, then reloads the snapshot and announces
// the change to other processes.
func (s *Service) Import(ctx context.Context, entries []catalog.Entry, onProgress ProgressFunc) (int, error) {
	total := len(entries)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		enriched := tags.EnrichEntry(e)
		if err := s.repo.Upsert(ctx, &enriched); err != nil {
			return i, fmt.Errorf("import %s: %w", e.DisplayName(), err)
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	if err := s.Reload(ctx); err != nil {
		return total, err
	}
	s.announce(ctx)

	s.logger.Info().Int("imported", total).Msg("Catalog import complete")
	return total, nil
}

// Delete removes one entry, reloads the snapshot and announces the change.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.announce(ctx)

	s.logger.Info().Str("car_id", id).Msg("Car removed from catalog")
	return nil
}

// announce publishes the current version so other processes reload.
func (s *Service) announce(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, CatalogChannel, []byte(s.Version())); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish catalog update")
	}
}

// Watch reloads the snapshot whenever another process announces a catalog
// change. It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	if s.notifier == nil {
		<-ctx.Done()
		return nil
	}

	msgs, unsubscribe, err := s.notifier.Subscribe(ctx, CatalogChannel)
	if err != nil {
		return fmt.Errorf("subscribe to catalog updates: %w", err)
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if string(msg) == s.Version() {
				continue
			}
			if err := s.Reload(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to reload catalog after update")
			}
		}
	}
}

// Car returns one stored entry.
func (s *Service) Car(ctx context.Context, id string) (*storage.CarRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Cars lists stored entries.
func (s *Service) Cars(ctx context.Context, q storage.CarQuery) ([]*storage.CarRecord, error) {
	return s.repo.List(ctx, q)
}

// Size returns the number of entries in the current snapshot.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher.Len()
}

// Version identifies the current snapshot.
func (s *Service) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func catalogVersion(entries []catalog.Entry) (string, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("hash catalog: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8]), nil
}
