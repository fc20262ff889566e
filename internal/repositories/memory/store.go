// Package memory implements repositories.Store in process memory.
//
// A single RWMutex guards all state: atomic units hold the write lock for
// their whole duration and plain reads take the read lock, so a reader never
// sees a half-applied unit. Writes made inside a unit record an undo step and
// are rolled back in reverse order if the unit fails.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

type edgeKey struct {
	left  int64
	right int64
}

type state struct {
	lastIDs map[string]int64 // per table, mirrors one BIGSERIAL sequence each

	people  map[int64]*entities.Person
	films   map[int64]*entities.Film
	tags    map[int64]*entities.Tag
	reviews map[int64]*entities.Review
	edges   map[entities.RelationKind]map[edgeKey]*entities.Edge
	feed    map[int64]*entities.FeedEvent
}

// txLog collects undo steps for the running atomic unit
type txLog struct {
	undo []func()
}

// Store is an in-memory repositories.Store
type Store struct {
	mu *sync.RWMutex
	st *state
	tx *txLog // non-nil inside Atomic; the write lock is already held
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	st := &state{
		lastIDs: make(map[string]int64),
		people:  make(map[int64]*entities.Person),
		films:   make(map[int64]*entities.Film),
		tags:    make(map[int64]*entities.Tag),
		reviews: make(map[int64]*entities.Review),
		edges:   make(map[entities.RelationKind]map[edgeKey]*entities.Edge),
		feed:    make(map[int64]*entities.FeedEvent),
	}
	for _, kind := range entities.AllKinds {
		st.edges[kind] = make(map[edgeKey]*entities.Edge)
	}
	return &Store{mu: &sync.RWMutex{}, st: st}
}

func (s *Store) People() repositories.PersonRepository { return &personRepository{s: s} }
func (s *Store) Films() repositories.FilmRepository { return &filmRepository{s: s} }
func (s *Store) Tags() repositories.TagRepository { return &tagRepository{s: s} }
func (s *Store) Reviews() repositories.ReviewRepository { return &reviewRepository{s: s} }
func (s *Store) Relations() repositories.RelationRepository { return &relationRepository{s: s} }
func (s *Store) Feed() repositories.FeedRepository { return &feedRepository{s: s} }

// Lock only checks existence: the write lock held by Atomic already
// serializes every unit.
func (s *Store) Lock(ctx context.Context, entityType entities.EntityType, id int64) error {
	defer s.read()()

	var ok bool
	switch entityType {
	case entities.EntityPerson:
		_, ok = s.st.people[id]
	case entities.EntityFilm:
		_, ok = s.st.films[id]
	case entities.EntityReview:
		_, ok = s.st.reviews[id]
	default:
		kind, isTag := entityType.TagKind()
		if isTag {
			t, found := s.st.tags[id]
			ok = found && t.Kind == kind
		}
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", entityType, id, repositories.ErrNotFound)
	}
	return nil
}

// Atomic runs fn while holding the store write lock
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := &txLog{}
	txStore := &Store{mu: s.mu, st: s.st, tx: log}
	if err := fn(ctx, txStore); err != nil {
		for i := len(log.undo) - 1; i >= 0; i-- {
			log.undo[i]()
		}
		return err
	}
	return nil
}

// read acquires the read lock unless running inside an atomic unit
func (s *Store) read() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// write acquires the write lock unless running inside an atomic unit
func (s *Store) write() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// onRollback registers an undo step for the running unit
func (s *Store) onRollback(undo func()) {
	if s.tx != nil {
		s.tx.undo = append(s.tx.undo, undo)
	}
}

// nextID hands out IDs per table; IDs are never reused, even after a rollback
func (s *Store) nextID(table string) int64 {
	s.st.lastIDs[table]++
	return s.st.lastIDs[table]
}

// restore returns an undo step that puts prev back under id, or removes id
// when prev is nil
func restore[T any](m map[int64]*T, id int64, prev *T) func() {
	return func() {
		if prev == nil {
			delete(m, id)
			return
		}
		m[id] = prev
	}
}
