package services

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/services/relations"
)

// associationKinds is the order in which a film's declared tag sets are reconciled
var associationKinds = []entities.RelationKind{
	entities.KindGenre,
	entities.KindDirector,
	entities.KindClassification,
}

// FilmServiceInterface defines the interface for film operations
type FilmServiceInterface interface {
	Create(ctx context.Context, film *entities.Film) error
	Get(ctx context.Context, id int64) (*entities.Film, error)
	List(ctx context.Context, filter *repositories.FilmFilter) ([]*entities.Film, error)
	Update(ctx context.Context, film *entities.Film) error
	Delete(ctx context.Context, id int64) error
}

// FilmService keeps film records and their genre, director and
// classification associations in step
type FilmService struct {
	store  repositories.Store
	engine relations.EngineInterface
}

// NewFilmService creates a new FilmService
func NewFilmService(store repositories.Store, engine relations.EngineInterface) *FilmService {
	return &FilmService{store: store, engine: engine}
}

// Create stores the film and its declared associations as one unit
func (s *FilmService) Create(ctx context.Context, film *entities.Film) error {
	if err := film.Validate(); err != nil {
		return invalid(err)
	}

	return s.engine.Run(ctx, func(ctx context.Context, u *relations.Unit) error {
		if err := u.Store.Films().Create(ctx, film); err != nil {
			return fmt.Errorf("failed to create film: %w", err)
		}
		return s.reconcile(ctx, u, film)
	})
}

// Update replaces the film record and its declared associations as one unit.
// An empty declared set clears the associations of that kind.
func (s *FilmService) Update(ctx context.Context, film *entities.Film) error {
	if err := film.Validate(); err != nil {
		return invalid(err)
	}

	return s.engine.Run(ctx, func(ctx context.Context, u *relations.Unit) error {
		if err := u.Store.Films().Update(ctx, film); err != nil {
			return fmt.Errorf("failed to update film: %w", err)
		}
		return s.reconcile(ctx, u, film)
	})
}

// reconcile locks and attaches every declared tag; an unknown tag fails the unit
func (s *FilmService) reconcile(ctx context.Context, u *relations.Unit, film *entities.Film) error {
	declared := film.Associations()
	for _, kind := range associationKinds {
		if _, err := s.engine.Reconcile(ctx, u, film.ID, kind, declared[kind]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the film with its associations read from the ledger
func (s *FilmService) Get(ctx context.Context, id int64) (*entities.Film, error) {
	film, err := s.store.Films().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get film: %w", err)
	}
	if err := loadAssociations(ctx, s.store, film); err != nil {
		return nil, err
	}
	return film, nil
}

func (s *FilmService) List(ctx context.Context, filter *repositories.FilmFilter) ([]*entities.Film, error) {
	films, err := s.store.Films().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list films: %w", err)
	}
	for _, film := range films {
		if err := loadAssociations(ctx, s.store, film); err != nil {
			return nil, err
		}
	}
	return films, nil
}

// Delete removes the film with its likes, associations and reviews
func (s *FilmService) Delete(ctx context.Context, id int64) error {
	return s.engine.CascadeDelete(ctx, entities.EntityFilm, id)
}

func loadAssociations(ctx context.Context, store repositories.Store, film *entities.Film) error {
	ids := make(map[entities.RelationKind][]int64, len(associationKinds))
	for _, kind := range associationKinds {
		edges, err := store.Relations().EdgesFrom(ctx, kind, film.ID)
		if err != nil {
			return fmt.Errorf("failed to read %s associations of film %d: %w", kind, film.ID, err)
		}
		ids[kind] = entities.RightIDs(edges)
	}

	film.GenreIDs = ids[entities.KindGenre]
	film.DirectorIDs = ids[entities.KindDirector]
	film.ClassificationID = 0
	if classification := ids[entities.KindClassification]; len(classification) > 0 {
		film.ClassificationID = classification[0]
	}
	return nil
}
