// Package aggregation answers ranked and derived queries over the entity
// store and the relation ledger. Every result is computed from the current
// ledger state on each call; nothing here is cached or persisted.
package aggregation

import (
	"context"
	"fmt"
	"sort"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// AggregatorInterface defines the derived-query entry points
type AggregatorInterface interface {
	Popular(ctx context.Context, q *PopularQuery) ([]*FilmRank, error)
	CommonFriends(ctx context.Context, personA, personB int64) ([]*entities.Person, error)
	CommonFilms(ctx context.Context, personA, personB int64) ([]*FilmRank, error)
	Friends(ctx context.Context, personID int64) ([]*entities.Person, error)
	Usefulness(ctx context.Context, reviewID int64) (int, error)
	TopReviews(ctx context.Context, filmID int64, limit int) ([]*entities.Review, error)
	FilmsByDirector(ctx context.Context, directorID int64, sortBy DirectorSort) ([]*FilmRank, error)
	Search(ctx context.Context, q *SearchQuery) ([]*FilmRank, error)
}

// Aggregator computes popularity rankings, intersections and review scores
type Aggregator struct {
	store repositories.Store
}

// NewAggregator creates a new Aggregator
func NewAggregator(store repositories.Store) *Aggregator {
	return &Aggregator{store: store}
}

// FilmRank pairs a film with its current like count
type FilmRank struct {
	Film  *entities.Film
	Likes int
}

// PopularQuery contains the parameters of a popularity ranking
type PopularQuery struct {
	Limit   int    // Maximum number of films, must be positive
	GenreID *int64 // Only films carrying this genre (optional)
	Year    *int   // Only films released in this year (optional)
}

// Popular ranks films by like count descending, ties broken by ascending film ID
func (a *Aggregator) Popular(ctx context.Context, q *PopularQuery) ([]*FilmRank, error) {
	if q == nil || q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", repositories.ErrInvalidArgument)
	}
	// ReleaseYear 0 means any year, so a year filter must be positive
	if q.Year != nil && *q.Year <= 0 {
		return nil, fmt.Errorf("%w: year must be a positive integer, got %d", repositories.ErrInvalidArgument, *q.Year)
	}

	filter := &repositories.FilmFilter{}
	if q.Year != nil {
		filter.ReleaseYear = *q.Year
	}
	if q.GenreID != nil {
		edges, err := a.store.Relations().EdgesTo(ctx, entities.KindGenre, *q.GenreID)
		if err != nil {
			return nil, fmt.Errorf("failed to read films of genre %d: %w", *q.GenreID, err)
		}
		filter.IDs = entities.LeftIDs(edges)
	}

	films, err := a.store.Films().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate films: %w", err)
	}

	ranked, err := a.rank(ctx, films, byLikes)
	if err != nil {
		return nil, err
	}
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	return ranked, nil
}

// CommonFriends returns the people both personA and personB list as friends, ordered by ID
func (a *Aggregator) CommonFriends(ctx context.Context, personA, personB int64) ([]*entities.Person, error) {
	ids, err := a.intersect(ctx, entities.KindFriendship, personA, personB)
	if err != nil {
		return nil, err
	}
	people, err := a.store.People().GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load common friends: %w", err)
	}
	return people, nil
}

// Friends returns the people personID lists as friends, ordered by ID
func (a *Aggregator) Friends(ctx context.Context, personID int64) ([]*entities.Person, error) {
	edges, err := a.store.Relations().EdgesFrom(ctx, entities.KindFriendship, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to read friends of %d: %w", personID, err)
	}
	people, err := a.store.People().GetMany(ctx, entities.RightIDs(edges))
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	return people, nil
}

// CommonFilms returns the films both people like, most popular first
func (a *Aggregator) CommonFilms(ctx context.Context, personA, personB int64) ([]*FilmRank, error) {
	ids, err := a.intersect(ctx, entities.KindLike, personA, personB)
	if err != nil {
		return nil, err
	}
	films, err := a.store.Films().List(ctx, &repositories.FilmFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load common films: %w", err)
	}
	return a.rank(ctx, films, byLikes)
}

// intersect returns the right-side ids shared by the edges of a and b, ascending
func (a *Aggregator) intersect(ctx context.Context, kind entities.RelationKind, left, right int64) ([]int64, error) {
	fromLeft, err := a.store.Relations().EdgesFrom(ctx, kind, left)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s edges of %d: %w", kind, left, err)
	}
	fromRight, err := a.store.Relations().EdgesFrom(ctx, kind, right)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s edges of %d: %w", kind, right, err)
	}

	seen := make(map[int64]struct{}, len(fromLeft))
	for _, e := range fromLeft {
		seen[e.RightID] = struct{}{}
	}
	common := []int64{}
	for _, e := range fromRight {
		if _, ok := seen[e.RightID]; ok {
			common = append(common, e.RightID)
			delete(seen, e.RightID)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })
	return common, nil
}

type rankOrder func(a, b *FilmRank) bool

// byLikes orders by like count descending, then film ID ascending
func byLikes(a, b *FilmRank) bool {
	if a.Likes != b.Likes {
		return a.Likes > b.Likes
	}
	return a.Film.ID < b.Film.ID
}

// byRelease orders by release date ascending, then film ID ascending
func byRelease(a, b *FilmRank) bool {
	if !a.Film.ReleaseDate.Equal(b.Film.ReleaseDate) {
		return a.Film.ReleaseDate.Before(b.Film.ReleaseDate)
	}
	return a.Film.ID < b.Film.ID
}

// rank attaches current like counts to films and sorts them
func (a *Aggregator) rank(ctx context.Context, films []*entities.Film, less rankOrder) ([]*FilmRank, error) {
	if len(films) == 0 {
		return []*FilmRank{}, nil
	}

	ids := make([]int64, 0, len(films))
	for _, f := range films {
		ids = append(ids, f.ID)
	}
	likes, err := a.store.Relations().CountByRight(ctx, entities.KindLike, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	ranked := make([]*FilmRank, 0, len(films))
	for _, f := range films {
		ranked = append(ranked, &FilmRank{Film: f, Likes: likes[f.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	return ranked, nil
}
