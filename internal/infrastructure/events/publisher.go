// Package events publishes committed feed events to interested consumers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	json "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher delivers feed events after the mutation that produced them committed
type Publisher interface {
	Publish(ctx context.Context, event *entities.FeedEvent) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *entities.FeedEvent) error { return nil }
func (NopPublisher) Close() error { return nil }

// Message is the wire form of a feed event
type Message struct {
	EventID   int64     `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	PersonID  int64     `json:"userId"`
	EventType string    `json:"eventType"`
	Operation string    `json:"operation"`
	EntityID  int64     `json:"entityId"`
}

// Encode converts a feed event into its JSON wire form
func Encode(event *entities.FeedEvent) ([]byte, error) {
	return json.Marshal(&Message{
		EventID:   event.ID,
		Timestamp: event.Timestamp,
		PersonID:  event.PersonID,
		EventType: string(event.EventType),
		Operation: string(event.Operation),
		EntityID:  event.EntityID,
	})
}

// Subject returns the subject a feed event is published on
// Format: <prefix>.feed.<event type>
func Subject(prefix string, event *entities.FeedEvent) string {
	return fmt.Sprintf("%s.feed.%s", prefix, event.EventType)
}

// NATSConfig holds the connection settings for the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSPublisher publishes feed events as core NATS messages
type NATSPublisher struct {
	conn   *natsgo.Conn
	prefix string
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewNATSPublisher connects to NATS and returns a publisher
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewNATSPublisher(cfg NATSConfig, logger zerolog.Logger) (*NATSPublisher, error) {
	logger = logger.With().Str("component", "events").Logger()

	opts := []natsgo.Option{
		natsgo.Name("filmrate"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Publish sends one feed event
func (p *NATSPublisher) Publish(ctx context.Context, event *entities.FeedEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	data, err := Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode feed event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, event), data); err != nil {
		return fmt.Errorf("failed to publish feed event: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Drain()
}
