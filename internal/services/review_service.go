package services

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"github.com/asakaida/filmrate/internal/services/relations"
)

// ReviewServiceInterface defines the interface for review operations
type ReviewServiceInterface interface {
	Create(ctx context.Context, review *entities.Review) error
	Get(ctx context.Context, id int64) (*entities.Review, error)
	Update(ctx context.Context, review *entities.Review) error
	Delete(ctx context.Context, id int64) error
	SetVote(ctx context.Context, personID, reviewID int64, polarity entities.Polarity) error
}

// ReviewService handles reviews and the votes cast on them.
// Writes show up in the author's feed.
type ReviewService struct {
	store      repositories.Store
	engine     relations.EngineInterface
	aggregator aggregation.AggregatorInterface
}

// NewReviewService creates a new ReviewService
func NewReviewService(store repositories.Store, engine relations.EngineInterface, aggregator aggregation.AggregatorInterface) *ReviewService {
	return &ReviewService{store: store, engine: engine, aggregator: aggregator}
}

func (s *ReviewService) Create(ctx context.Context, review *entities.Review) error {
	if err := review.Validate(); err != nil {
		return invalid(err)
	}

	return s.engine.Run(ctx, func(ctx context.Context, u *relations.Unit) error {
		if err := requirePerson(ctx, u.Store, review.PersonID); err != nil {
			return err
		}
		if err := requireFilm(ctx, u.Store, review.FilmID); err != nil {
			return err
		}
		review.Useful = 0
		if err := u.Store.Reviews().Create(ctx, review); err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		return u.Record(ctx, review.PersonID, entities.EventReview, entities.OpAdd, review.ID)
	})
}

// Get returns the review with its usefulness score
func (s *ReviewService) Get(ctx context.Context, id int64) (*entities.Review, error) {
	review, err := s.store.Reviews().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	if review.Useful, err = s.aggregator.Usefulness(ctx, id); err != nil {
		return nil, err
	}
	return review, nil
}

// Update changes the content and polarity of a review; its film and author stay fixed
func (s *ReviewService) Update(ctx context.Context, review *entities.Review) error {
	if review.Content == "" {
		return fmt.Errorf("%w: content is required", repositories.ErrInvalidArgument)
	}

	return s.engine.Run(ctx, func(ctx context.Context, u *relations.Unit) error {
		stored, err := u.Store.Reviews().Get(ctx, review.ID)
		if err != nil {
			return fmt.Errorf("failed to get review: %w", err)
		}
		if err := u.Store.Reviews().Update(ctx, review); err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		review.FilmID = stored.FilmID
		review.PersonID = stored.PersonID
		return u.Record(ctx, stored.PersonID, entities.EventReview, entities.OpUpdate, review.ID)
	})
}

// Delete removes the review and every vote cast on it
func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	return s.engine.CascadeDelete(ctx, entities.EntityReview, id)
}

// SetVote replaces personID's vote on reviewID; VoteNone withdraws it
func (s *ReviewService) SetVote(ctx context.Context, personID, reviewID int64, polarity entities.Polarity) error {
	return s.engine.SetVote(ctx, personID, reviewID, polarity)
}
