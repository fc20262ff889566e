package aggregation

import (
	"context"
	"fmt"
	"strings"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// DirectorSort selects the order of FilmsByDirector
type DirectorSort string

const (
	SortByYear  DirectorSort = "year"
	SortByLikes DirectorSort = "likes"
)

// FilmsByDirector returns the films carrying the director, ordered by
// release date (SortByYear) or by like count (SortByLikes)
func (a *Aggregator) FilmsByDirector(ctx context.Context, directorID int64, sortBy DirectorSort) ([]*FilmRank, error) {
	var less rankOrder
	switch sortBy {
	case SortByYear:
		less = byRelease
	case SortByLikes:
		less = byLikes
	default:
		return nil, fmt.Errorf("%w: unknown sort %q, expected year or likes", repositories.ErrInvalidArgument, sortBy)
	}

	edges, err := a.store.Relations().EdgesTo(ctx, entities.KindDirector, directorID)
	if err != nil {
		return nil, fmt.Errorf("failed to read films of director %d: %w", directorID, err)
	}
	films, err := a.store.Films().List(ctx, &repositories.FilmFilter{IDs: entities.LeftIDs(edges)})
	if err != nil {
		return nil, fmt.Errorf("failed to load films of director %d: %w", directorID, err)
	}
	return a.rank(ctx, films, less)
}

// SearchQuery contains the parameters of a film search
type SearchQuery struct {
	Query      string
	ByTitle    bool
	ByDirector bool
}

// Search returns the films whose title or director name contains the query,
// case-insensitively, most popular first
func (a *Aggregator) Search(ctx context.Context, q *SearchQuery) ([]*FilmRank, error) {
	if q == nil || (!q.ByTitle && !q.ByDirector) {
		return nil, fmt.Errorf("%w: search must target title, director or both", repositories.ErrInvalidArgument)
	}
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", repositories.ErrInvalidArgument)
	}

	matched := make(map[int64]*entities.Film)

	if q.ByTitle {
		films, err := a.store.Films().List(ctx, &repositories.FilmFilter{TitleContains: query})
		if err != nil {
			return nil, fmt.Errorf("failed to search titles: %w", err)
		}
		for _, f := range films {
			matched[f.ID] = f
		}
	}

	if q.ByDirector {
		directors, err := a.store.Tags().List(ctx, entities.TagDirector, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search directors: %w", err)
		}
		var ids []int64
		for _, d := range directors {
			edges, err := a.store.Relations().EdgesTo(ctx, entities.KindDirector, d.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to read films of director %d: %w", d.ID, err)
			}
			ids = append(ids, entities.LeftIDs(edges)...)
		}
		films, err := a.store.Films().List(ctx, &repositories.FilmFilter{IDs: nonNil(ids)})
		if err != nil {
			return nil, fmt.Errorf("failed to load director matches: %w", err)
		}
		for _, f := range films {
			matched[f.ID] = f
		}
	}

	films := make([]*entities.Film, 0, len(matched))
	for _, f := range matched {
		films = append(films, f)
	}
	return a.rank(ctx, films, byLikes)
}

// nonNil keeps an empty id restriction from reading as "no restriction"
func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
