package repositories

import (
	"context"

	"github.com/asakaida/filmrate/internal/entities"
)

// Store groups the entity repositories and the relation ledger over one
// storage substrate.
type Store interface {
	People() PersonRepository
	Films() FilmRepository
	Tags() TagRepository
	Reviews() ReviewRepository
	Relations() RelationRepository
	Feed() FeedRepository

	// Lock serializes the caller against other atomic units touching the same
	// entity until the enclosing unit ends. Returns ErrNotFound for unknown ids.
	Lock(ctx context.Context, entityType entities.EntityType, id int64) error

	// Atomic runs fn against a Store whose writes commit together or not at all.
	// Concurrent readers never observe a partially applied unit.
	// Calling Atomic on the Store passed to fn joins the enclosing unit.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
