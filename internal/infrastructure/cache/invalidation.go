// Package cache keeps per-process record caches consistent across server
// instances that share one PostgreSQL store.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Channel is the PostgreSQL NOTIFY channel carrying invalidated keys
const Channel = "filmrate_cache_invalidation"

const pingInterval = 90 * time.Second

// message is the NOTIFY payload
type message struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// Evicter drops keys from the local record cache
type Evicter interface {
	Evict(ctx context.Context, keys ...string) error
}

// Invalidator announces local cache invalidations through NOTIFY and evicts
// the keys announced by other instances from the local cache.
type Invalidator struct {
	db      *sql.DB
	connStr string
	evicter Evicter
	origin  string
	logger  zerolog.Logger

	mu       sync.Mutex
	listener *pq.Listener
	stopCh   chan struct{}
	stopped  bool
}

// NewInvalidator creates a new Invalidator.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewInvalidator(db *sql.DB, connStr string, evicter Evicter, logger zerolog.Logger) *Invalidator {
	host, _ := os.Hostname()
	return &Invalidator{
		db:      db,
		connStr: connStr,
		evicter: evicter,
		origin:  fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano()),
		logger:  logger.With().Str("component", "cache_invalidation").Logger(),
		stopCh:  make(chan struct{}),
	}
}

// Broadcast publishes keys to every listening instance
func (i *Invalidator) Broadcast(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	payload, err := json.Marshal(&message{Origin: i.origin, Keys: keys})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}
	if _, err := i.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify invalidation: %w", err)
	}
	return nil
}

// Start begins listening for invalidations from other instances
func (i *Invalidator) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// The listener reconnects on its own; entries expire by TTL meanwhile
			i.logger.Warn().Err(err).Int("event", int(ev)).Msg("listener problem")
		}
	}

	listener := pq.NewListener(i.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(Channel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	i.mu.Lock()
	i.listener = listener
	i.mu.Unlock()

	go i.handleNotifications(listener)
	return nil
}

// Stop stops listening and releases the listener connection
func (i *Invalidator) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return nil
	}
	i.stopped = true
	close(i.stopCh)

	if i.listener != nil {
		return i.listener.Close()
	}
	return nil
}

func (i *Invalidator) handleNotifications(listener *pq.Listener) {
	for {
		select {
		case <-i.stopCh:
			return
		case notification := <-listener.Notify:
			if notification == nil {
				// Connection lost, listener will reconnect automatically
				continue
			}
			i.apply(context.Background(), notification.Extra)
		case <-time.After(pingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					i.logger.Warn().Err(err).Msg("listener ping failed")
				}
			}()
		}
	}
}

// apply evicts the keys of a payload sent by another instance
func (i *Invalidator) apply(ctx context.Context, payload string) {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		i.logger.Warn().Err(err).Msg("discarding malformed invalidation")
		return
	}
	if msg.Origin == i.origin || len(msg.Keys) == 0 {
		return
	}
	if err := i.evicter.Evict(ctx, msg.Keys...); err != nil {
		i.logger.Warn().Err(err).Strs("keys", msg.Keys).Msg("failed to apply invalidation")
	}
}
