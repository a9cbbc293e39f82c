package pipeline

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// SeriesCleaner turns a source into a cleaned series.
type SeriesCleaner interface {
	Clean(ctx context.Context, src Source) (*domain.CleanedSeries, error)
}

// Store memoizes cleaned series by source identity. The first request for a
// source runs the cleaner; concurrent requests for the same source wait for
// that run and share its result. Failures are not cached, so the next request
// retries. At most maxSources series are kept, least recently used first out.
type Store struct {
	cleaner SeriesCleaner
	logger  *slog.Logger
	metrics *observability.Metrics

	// mu guards everything below. recent orders cached series from most to
	// least recently used; its elements hold *cachedSeries.
	mu         sync.Mutex
	maxSources int
	recent     *list.List
	cached     map[string]*list.Element
	flights    map[string]*flight
}

type cachedSeries struct {
	key string
	cs  *domain.CleanedSeries
}

// flight is one in-progress cleaning. done is closed once cs and err are set.
type flight struct {
	done chan struct{}
	cs   *domain.CleanedSeries
	err  error
}

// NewStore creates a Store bounded to maxSources cleaned series.
func NewStore(cleaner SeriesCleaner, maxSources int, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if maxSources < 1 {
		maxSources = 1
	}
	return &Store{
		cleaner: cleaner,
		logger:  logger,
		metrics: metrics,
		maxSources: maxSources,
		recent:     list.New(),
		cached:     make(map[string]*list.Element),
		flights:    make(map[string]*flight),
	}
}

// Get returns the cleaned series of src, cleaning it on first use. If ctx ends
// while waiting, Get returns ctx.Err() but the cleaning carries on for other
// callers.
func (s *Store) Get(ctx context.Context, src Source) (*domain.CleanedSeries, error) {
	key := src.ID()

	s.mu.Lock()
	if el, ok := s.cached[key]; ok {
		s.recent.MoveToFront(el)
		cs := el.Value.(*cachedSeries).cs
		s.mu.Unlock()
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cs, nil
	}
	f, shared := s.flights[key]
	if !shared {
		f = &flight{done: make(chan struct{})}
		s.flights[key] = f
		go s.run(context.WithoutCancel(ctx), key, src, f)
	}
	s.mu.Unlock()

	if shared {
		s.metrics.CacheLookups.WithLabelValues("shared").Inc()
	} else {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	select {
	case <-f.done:
		return f.cs, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of cached series.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.Len()
}

func (s *Store) run(ctx context.Context, key string, src Source, f *flight) {
	f.cs, f.err = s.cleaner.Clean(ctx, src)

	s.mu.Lock()
	delete(s.flights, key)
	var evicted []string
	if f.err == nil {
		evicted = s.insert(key, f.cs)
	}
	n := s.recent.Len()
	s.mu.Unlock()

	for _, k := range evicted {
		s.logger.Info("cleaned series evicted", "source", k)
	}
	s.metrics.CachedSources.Set(float64(n))
	close(f.done)
}

// insert caches cs as the most recent entry and trims the list to maxSources,
// returning the evicted keys. s.mu must be held.
func (s *Store) insert(key string, cs *domain.CleanedSeries) []string {
	if el, ok := s.cached[key]; ok {
		el.Value.(*cachedSeries).cs = cs
		s.recent.MoveToFront(el)
		return nil
	}
	s.cached[key] = s.recent.PushFront(&cachedSeries{key: key, cs: cs})

	var evicted []string
	for s.recent.Len() > s.maxSources {
		oldest := s.recent.Back()
		k := s.recent.Remove(oldest).(*cachedSeries).key
		delete(s.cached, k)
		evicted = append(evicted, k)
	}
	return evicted
}
