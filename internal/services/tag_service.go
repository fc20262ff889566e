package services

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/services/relations"
)

// TagServiceInterface defines the interface for genre, classification and director operations
type TagServiceInterface interface {
	Create(ctx context.Context, tag *entities.Tag) error
	Get(ctx context.Context, kind entities.TagKind, id int64) (*entities.Tag, error)
	List(ctx context.Context, kind entities.TagKind, nameContains string) ([]*entities.Tag, error)
	Update(ctx context.Context, tag *entities.Tag) error
	Delete(ctx context.Context, kind entities.TagKind, id int64) error
}

// TagService handles genres, classifications and directors
type TagService struct {
	store  repositories.Store
	engine relations.EngineInterface
}

// NewTagService creates a new TagService
func NewTagService(store repositories.Store, engine relations.EngineInterface) *TagService {
	return &TagService{store: store, engine: engine}
}

func (s *TagService) Create(ctx context.Context, tag *entities.Tag) error {
	if err := tag.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.Tags().Create(ctx, tag); err != nil {
		return fmt.Errorf("failed to create %s: %w", tag.Kind, err)
	}
	return nil
}

func (s *TagService) Get(ctx context.Context, kind entities.TagKind, id int64) (*entities.Tag, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown tag kind %q", repositories.ErrInvalidArgument, kind)
	}
	tag, err := s.store.Tags().Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return tag, nil
}

func (s *TagService) List(ctx context.Context, kind entities.TagKind, nameContains string) ([]*entities.Tag, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown tag kind %q", repositories.ErrInvalidArgument, kind)
	}
	tags, err := s.store.Tags().List(ctx, kind, nameContains)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tags: %w", kind, err)
	}
	return tags, nil
}

func (s *TagService) Update(ctx context.Context, tag *entities.Tag) error {
	if err := tag.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.Tags().Update(ctx, tag); err != nil {
		return fmt.Errorf("failed to update %s: %w", tag.Kind, err)
	}
	return nil
}

// Delete removes the tag and detaches it from every film
func (s *TagService) Delete(ctx context.Context, kind entities.TagKind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown tag kind %q", repositories.ErrInvalidArgument, kind)
	}
	return s.engine.CascadeDelete(ctx, kind.EntityType(), id)
}
