package aggregation

import (
	"context"
	"fmt"
	"sort"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// Usefulness returns the sum of all votes on a review; 0 without votes
func (a *Aggregator) Usefulness(ctx context.Context, reviewID int64) (int, error) {
	sums, err := a.store.Relations().SumByRight(ctx, entities.KindReviewVote, []int64{reviewID})
	if err != nil {
		return 0, fmt.Errorf("failed to sum votes of review %d: %w", reviewID, err)
	}
	return sums[reviewID], nil
}

// TopReviews returns the reviews of a film (every film when filmID is 0)
// ordered by usefulness descending; ties go to the newer review, i.e. the
// higher ID.
func (a *Aggregator) TopReviews(ctx context.Context, filmID int64, limit int) ([]*entities.Review, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", repositories.ErrInvalidArgument)
	}

	var reviews []*entities.Review
	var err error
	if filmID == 0 {
		reviews, err = a.store.Reviews().List(ctx)
	} else {
		reviews, err = a.store.Reviews().ListByFilm(ctx, filmID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	if err := a.FillUsefulness(ctx, reviews); err != nil {
		return nil, err
	}
	SortReviews(reviews)
	if len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

// FillUsefulness sets the Useful field of each review from the ledger
func (a *Aggregator) FillUsefulness(ctx context.Context, reviews []*entities.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	sums, err := a.store.Relations().SumByRight(ctx, entities.KindReviewVote, ids)
	if err != nil {
		return fmt.Errorf("failed to sum review votes: %w", err)
	}
	for _, r := range reviews {
		r.Useful = sums[r.ID]
	}
	return nil
}

// SortReviews orders reviews by usefulness descending, then ID descending
func SortReviews(reviews []*entities.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		if reviews[i].Useful != reviews[j].Useful {
			return reviews[i].Useful > reviews[j].Useful
		}
		return reviews[i].ID > reviews[j].ID
	})
}
