package services

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/services/relations"
)

// PersonServiceInterface defines the interface for person and social graph operations
type PersonServiceInterface interface {
	Create(ctx context.Context, person *entities.Person) error
	Get(ctx context.Context, id int64) (*entities.Person, error)
	List(ctx context.Context) ([]*entities.Person, error)
	Update(ctx context.Context, person *entities.Person) error
	Delete(ctx context.Context, id int64) error
	SetFriendship(ctx context.Context, personID, friendID int64, present bool) (bool, error)
	SetLike(ctx context.Context, personID, filmID int64, present bool) (bool, error)
	Feed(ctx context.Context, personID int64) ([]*entities.FeedEvent, error)
}

// PersonService handles people, their friendships, likes and feed
type PersonService struct {
	store  repositories.Store
	engine relations.EngineInterface
}

// NewPersonService creates a new PersonService
func NewPersonService(store repositories.Store, engine relations.EngineInterface) *PersonService {
	return &PersonService{store: store, engine: engine}
}

func (s *PersonService) Create(ctx context.Context, person *entities.Person) error {
	if err := person.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.People().Create(ctx, person); err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (s *PersonService) Get(ctx context.Context, id int64) (*entities.Person, error) {
	person, err := s.store.People().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

func (s *PersonService) List(ctx context.Context) ([]*entities.Person, error) {
	people, err := s.store.People().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}

func (s *PersonService) Update(ctx context.Context, person *entities.Person) error {
	if err := person.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.People().Update(ctx, person); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	return nil
}

// Delete removes the person with their friendships, likes, votes, reviews and feed
func (s *PersonService) Delete(ctx context.Context, id int64) error {
	return s.engine.CascadeDelete(ctx, entities.EntityPerson, id)
}

// SetFriendship adds or removes the directed friendship personID -> friendID.
// Both people must exist; the engine checks them under lock.
func (s *PersonService) SetFriendship(ctx context.Context, personID, friendID int64, present bool) (bool, error) {
	return s.engine.SetFriendship(ctx, personID, friendID, present)
}

// SetLike adds or removes personID's like of filmID
func (s *PersonService) SetLike(ctx context.Context, personID, filmID int64, present bool) (bool, error) {
	return s.engine.SetLike(ctx, personID, filmID, present)
}

// Feed lists the person's activity in the order it happened
func (s *PersonService) Feed(ctx context.Context, personID int64) ([]*entities.FeedEvent, error) {
	if _, err := s.store.People().Get(ctx, personID); err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	events, err := s.store.Feed().ListByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return events, nil
}
