// Package postgres implements the repositories on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements repositories.Store using PostgreSQL
type PostgresStore struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) People() repositories.PersonRepository { return &personRepository{q: s.q} }
func (s *PostgresStore) Films() repositories.FilmRepository { return &filmRepository{q: s.q} }
func (s *PostgresStore) Tags() repositories.TagRepository { return &tagRepository{q: s.q} }
func (s *PostgresStore) Reviews() repositories.ReviewRepository { return &reviewRepository{q: s.q} }
func (s *PostgresStore) Relations() repositories.RelationRepository { return &relationRepository{q: s.q} }
func (s *PostgresStore) Feed() repositories.FeedRepository { return &feedRepository{q: s.q} }

var lockQueries = map[entities.EntityType]string{
	entities.EntityPerson: `SELECT id FROM people WHERE id = $1 FOR UPDATE`,
	entities.EntityFilm:   `SELECT id FROM films WHERE id = $1 FOR UPDATE`,
	entities.EntityReview: `SELECT id FROM reviews WHERE id = $1 FOR UPDATE`,
}

// Lock takes a row lock on the entity for the rest of the transaction.
// Outside a transaction it only checks existence.
func (s *PostgresStore) Lock(ctx context.Context, entityType entities.EntityType, id int64) error {
	var row *sql.Row
	if kind, ok := entityType.TagKind(); ok {
		row = s.q.QueryRowContext(ctx, `SELECT id FROM tags WHERE id = $1 AND kind = $2 FOR UPDATE`, id, kind)
	} else if query, ok := lockQueries[entityType]; ok {
		row = s.q.QueryRowContext(ctx, query, id)
	} else {
		return fmt.Errorf("%w: unknown entity type %q", repositories.ErrInvalidArgument, entityType)
	}

	var locked int64
	if err := row.Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %d: %w", entityType, id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to lock %s %d: %w", entityType, id, err)
	}
	return nil
}

// Atomic runs fn inside one transaction. A nested call joins the enclosing transaction.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nullTime maps a zero time to SQL NULL
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
