// Package cached decorates a repositories.Store with a read-through cache
// for person and film records. Only plain entity records are cached: anything
// computed from the relation ledger is always read from the underlying store.
package cached

import (
	"context"
	"fmt"
	"sync"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/pkg/cache"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Observer is notified of cache lookups per record type
type Observer interface {
	RecordCacheHit(recordType string)
	RecordCacheMiss(recordType string)
}

// Broadcaster tells other processes sharing the underlying store which
// cache keys this process invalidated
type Broadcaster interface {
	Broadcast(ctx context.Context, keys []string) error
}

// Store wraps a repositories.Store with a record cache
type Store struct {
	inner       repositories.Store
	cache       cache.Cache
	observer    Observer
	broadcaster Broadcaster
	logger      zerolog.Logger

	// mu orders cache fills against evictions; epoch counts evictions so a
	// fill whose read overlapped one is dropped instead of caching a record
	// that may already be gone
	mu    sync.Mutex
	epoch uint64
}

// NewStore creates a new cached store
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(inner repositories.Store, c cache.Cache, logger zerolog.Logger) *Store {
	return &Store{
		inner:  inner,
		cache:  c,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// SetObserver sets the observer for cache lookups
func (s *Store) SetObserver(observer Observer) {
	s.observer = observer
}

// SetBroadcaster sets where invalidated keys are announced
func (s *Store) SetBroadcaster(broadcaster Broadcaster) {
	s.broadcaster = broadcaster
}

func personKey(id int64) string { return fmt.Sprintf("person:%d", id) }
func filmKey(id int64) string { return fmt.Sprintf("film:%d", id) }

func (s *Store) People() repositories.PersonRepository {
	return &personRepository{PersonRepository: s.inner.People(), s: s, invalidate: s.invalidateNow}
}

func (s *Store) Films() repositories.FilmRepository {
	return &filmRepository{FilmRepository: s.inner.Films(), s: s, invalidate: s.invalidateNow}
}

func (s *Store) Tags() repositories.TagRepository { return s.inner.Tags() }
func (s *Store) Reviews() repositories.ReviewRepository { return s.inner.Reviews() }
func (s *Store) Relations() repositories.RelationRepository { return s.inner.Relations() }
func (s *Store) Feed() repositories.FeedRepository { return s.inner.Feed() }

func (s *Store) Lock(ctx context.Context, entityType entities.EntityType, id int64) error {
	return s.inner.Lock(ctx, entityType, id)
}

// Atomic runs fn on the underlying store. Records written inside the unit
// are evicted once it committed; reads inside the unit bypass the cache.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	pending := &pendingKeys{}
	err := s.inner.Atomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		return fn(ctx, &txStore{Store: tx, pending: pending})
	})
	if err != nil {
		return err
	}
	s.invalidateNow(ctx, pending.drain()...)
	return nil
}

// Evict drops keys from the cache without announcing them. Reads already in
// flight will not refill them.
func (s *Store) Evict(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.cache.Delete(ctx, keys...)
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Store) invalidateNow(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.Evict(ctx, keys...); err != nil {
		// A stale entry outlives this call by at most one TTL
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate cache")
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, keys); err != nil {
			s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to broadcast cache invalidation")
		}
	}
}

// load reads key from the cache into dst, reporting a hit
func (s *Store) load(ctx context.Context, recordType, key string, dst any) bool {
	data, ok := s.cache.Get(ctx, key)
	if ok {
		if err := json.Unmarshal(data, dst); err == nil {
			s.observeHit(recordType)
			return true
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}
	s.observeMiss(recordType)
	return false
}

// fill caches value read at epoch unless an eviction happened since
func (s *Store) fill(ctx context.Context, key string, epoch uint64, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if err := s.cache.Set(ctx, key, data, 0); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
	}
}

func (s *Store) observeHit(recordType string) {
	if s.observer != nil {
		s.observer.RecordCacheHit(recordType)
	}
}

func (s *Store) observeMiss(recordType string) {
	if s.observer != nil {
		s.observer.RecordCacheMiss(recordType)
	}
}

// pendingKeys collects the keys written by one atomic unit
type pendingKeys struct {
	mu   sync.Mutex
	keys []string
}

func (p *pendingKeys) add(ctx context.Context, keys ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, keys...)
}

func (p *pendingKeys) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := p.keys
	p.keys = nil
	return keys
}

// txStore is the view handed to an atomic unit: record writes are deferred
// for invalidation and record reads go straight to the transaction
type txStore struct {
	repositories.Store
	pending *pendingKeys
}

func (t *txStore) People() repositories.PersonRepository {
	return &personRepository{PersonRepository: t.Store.People(), invalidate: t.pending.add}
}

func (t *txStore) Films() repositories.FilmRepository {
	return &filmRepository{FilmRepository: t.Store.Films(), invalidate: t.pending.add}
}

// Atomic inside a unit joins it
func (t *txStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	return fn(ctx, t)
}
