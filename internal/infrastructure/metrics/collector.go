package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/asakaida/filmrate/pkg/cache"
	"github.com/asakaida/filmrate/pkg/cache/memorycache"
)

// Collector keeps in-process tallies of requests, cache lookups and ledger
// mutations. It feeds the Prometheus gauges and can be queried directly.
type Collector struct {
	apiRequests sync.Map // method -> *uint64
	apiErrors   sync.Map // method -> *uint64
	apiDuration sync.Map // method -> *durationValue
	mutations   sync.Map // "kind/operation" -> *uint64

	cache cache.Cache
}

type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
}

// APIMetrics holds API request metrics.
type APIMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the cache instance for collecting cache metrics.
func (c *Collector) SetCache(cache cache.Cache) {
	c.cache = cache
}

func (c *Collector) RecordRequest(method string) {
	atomic.AddUint64(counter(&c.apiRequests, method), 1)
}

func (c *Collector) RecordError(method string) {
	atomic.AddUint64(counter(&c.apiErrors, method), 1)
}

func (c *Collector) RecordDuration(method string, durationSeconds float64) {
	val, _ := c.apiDuration.LoadOrStore(method, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordMutation tallies ledger rows per kind and operation
func (c *Collector) RecordMutation(kind, operation string, rows int) {
	atomic.AddUint64(counter(&c.mutations, kind+"/"+operation), uint64(rows))
}

// Mutations returns the ledger row tallies keyed by "kind/operation"
func (c *Collector) Mutations() map[string]uint64 {
	return snapshot(&c.mutations)
}

// GetCacheMetrics returns current cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.cache == nil {
		return &CacheMetrics{}
	}

	metrics := c.cache.Metrics()
	if metrics == nil {
		return &CacheMetrics{}
	}

	result := &CacheMetrics{
		Hits:      metrics.Hits,
		Misses:    metrics.Misses,
		HitRate:   metrics.HitRate(),
		Evictions: metrics.KeysEvicted,
	}

	// Key count and size are only known for the in-process cache
	if memCache, ok := c.cache.(*memorycache.Cache); ok {
		result.KeysCurrent = int64(memCache.Len())
		result.MemoryBytes = memCache.Size()
	}

	return result
}

// GetAPIMetrics returns current API metrics.
func (c *Collector) GetAPIMetrics() *APIMetrics {
	result := &APIMetrics{
		RequestCounts:        snapshot(&c.apiRequests),
		ErrorCounts:          snapshot(&c.apiErrors),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.apiDuration.Range(func(key, value any) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

func counter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}

func snapshot(m *sync.Map) map[string]uint64 {
	result := make(map[string]uint64)
	m.Range(func(key, value any) bool {
		result[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return result
}
