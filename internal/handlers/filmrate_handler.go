package handlers

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/services"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultTopReviews = 10

// FilmRateHandler handles FilmRate service gRPC requests
type FilmRateHandler struct {
	people     services.PersonServiceInterface
	films      services.FilmServiceInterface
	tags       services.TagServiceInterface
	reviews    services.ReviewServiceInterface
	aggregator aggregation.AggregatorInterface

	popularDefaultLimit int
}

var _ FilmRateServer = (*FilmRateHandler)(nil)

// NewFilmRateHandler creates a new FilmRateHandler
func NewFilmRateHandler(
	people services.PersonServiceInterface,
	films services.FilmServiceInterface,
	tags services.TagServiceInterface,
	reviews services.ReviewServiceInterface,
	aggregator aggregation.AggregatorInterface,
	popularDefaultLimit int,
) *FilmRateHandler {
	return &FilmRateHandler{
		people:              people,
		films:               films,
		tags:                tags,
		reviews:             reviews,
		aggregator:          aggregator,
		popularDefaultLimit: popularDefaultLimit,
	}
}

// === Entities ===

func (h *FilmRateHandler) CreatePerson(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	person, err := requestToPerson(newRequest(in))
	if err != nil {
		return nil, invalidArgument(err)
	}
	if err := h.people.Create(ctx, person); err != nil {
		return nil, toStatus(err)
	}
	return response(personToMap(person))
}

func (h *FilmRateHandler) GetPerson(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := newRequest(in).id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	person, err := h.people.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(personToMap(person))
}

func (h *FilmRateHandler) CreateFilm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	film, err := requestToFilm(newRequest(in))
	if err != nil {
		return nil, invalidArgument(err)
	}
	if err := h.films.Create(ctx, film); err != nil {
		return nil, toStatus(err)
	}
	return h.film(ctx, film.ID)
}

func (h *FilmRateHandler) GetFilm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := newRequest(in).id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	return h.film(ctx, id)
}

// UpdateFilm replaces the film record and every declared association;
// omitted association lists clear that association
func (h *FilmRateHandler) UpdateFilm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	id, err := req.id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	film, err := requestToFilm(req)
	if err != nil {
		return nil, invalidArgument(err)
	}
	film.ID = id
	if err := h.films.Update(ctx, film); err != nil {
		return nil, toStatus(err)
	}
	return h.film(ctx, id)
}

func (h *FilmRateHandler) film(ctx context.Context, id int64) (*structpb.Struct, error) {
	film, err := h.films.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(filmToMap(film))
}

func (h *FilmRateHandler) CreateTag(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	tag := &entities.Tag{
		Kind:        entities.TagKind(req.str("kind")),
		Name:        req.str("name"),
		Description: req.str("description"),
	}
	if err := h.tags.Create(ctx, tag); err != nil {
		return nil, toStatus(err)
	}
	return response(tagToMap(tag))
}

func (h *FilmRateHandler) CreateReview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	filmID, err := req.id("film_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	personID, err := req.id("person_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	positive, err := req.boolean("is_positive", false)
	if err != nil {
		return nil, invalidArgument(err)
	}

	review := &entities.Review{
		FilmID:     filmID,
		PersonID:   personID,
		Content:    req.str("content"),
		IsPositive: positive,
	}
	if err := h.reviews.Create(ctx, review); err != nil {
		return nil, toStatus(err)
	}
	return response(reviewToMap(review))
}

func (h *FilmRateHandler) GetReview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := newRequest(in).id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	return h.review(ctx, id)
}

func (h *FilmRateHandler) UpdateReview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	id, err := req.id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	positive, err := req.boolean("is_positive", false)
	if err != nil {
		return nil, invalidArgument(err)
	}
	review := &entities.Review{ID: id, Content: req.str("content"), IsPositive: positive}
	if err := h.reviews.Update(ctx, review); err != nil {
		return nil, toStatus(err)
	}
	return h.review(ctx, id)
}

func (h *FilmRateHandler) review(ctx context.Context, id int64) (*structpb.Struct, error) {
	review, err := h.reviews.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(reviewToMap(review))
}

// DeleteEntity removes an entity of any type together with every edge that mentions it
func (h *FilmRateHandler) DeleteEntity(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	id, err := req.id("id")
	if err != nil {
		return nil, invalidArgument(err)
	}

	entityType := entities.EntityType(req.str("type"))
	switch entityType {
	case entities.EntityPerson:
		err = h.people.Delete(ctx, id)
	case entities.EntityFilm:
		err = h.films.Delete(ctx, id)
	case entities.EntityReview:
		err = h.reviews.Delete(ctx, id)
	default:
		kind, ok := entityType.TagKind()
		if !ok {
			return nil, invalidArgument(fmt.Errorf("unknown entity type %q", entityType))
		}
		err = h.tags.Delete(ctx, kind, id)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"type": string(entityType), "id": id})
}

// === Relations ===

func (h *FilmRateHandler) SetFriendship(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.setEdge(ctx, in, "friend_id", h.people.SetFriendship)
}

func (h *FilmRateHandler) SetLike(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.setEdge(ctx, in, "film_id", h.people.SetLike)
}

func (h *FilmRateHandler) setEdge(
	ctx context.Context,
	in *structpb.Struct,
	target string,
	set func(ctx context.Context, personID, targetID int64, present bool) (bool, error),
) (*structpb.Struct, error) {
	req := newRequest(in)
	personID, err := req.id("person_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	targetID, err := req.id(target)
	if err != nil {
		return nil, invalidArgument(err)
	}
	present, err := req.boolean("present", true)
	if err != nil {
		return nil, invalidArgument(err)
	}

	changed, err := set(ctx, personID, targetID, present)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"changed": changed})
}

func (h *FilmRateHandler) SetVote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	personID, err := req.id("person_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	reviewID, err := req.id("review_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	polarity, err := req.optionalInt("polarity", 0)
	if err != nil {
		return nil, invalidArgument(err)
	}

	if err := h.reviews.SetVote(ctx, personID, reviewID, entities.Polarity(polarity)); err != nil {
		return nil, toStatus(err)
	}
	return h.usefulness(ctx, reviewID)
}

// === Derived queries ===

func (h *FilmRateHandler) Friends(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	personID, err := newRequest(in).id("person_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	if _, err := h.people.Get(ctx, personID); err != nil {
		return nil, toStatus(err)
	}
	friends, err := h.aggregator.Friends(ctx, personID)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"people": listOf(friends, personToMap)})
}

func (h *FilmRateHandler) CommonFriends(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, b, err := h.personPair(ctx, in)
	if err != nil {
		return nil, err
	}
	common, err := h.aggregator.CommonFriends(ctx, a, b)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"people": listOf(common, personToMap)})
}

func (h *FilmRateHandler) CommonFilms(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, b, err := h.personPair(ctx, in)
	if err != nil {
		return nil, err
	}
	films, err := h.aggregator.CommonFilms(ctx, a, b)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"films": listOf(films, rankToMap)})
}

func (h *FilmRateHandler) personPair(ctx context.Context, in *structpb.Struct) (int64, int64, error) {
	req := newRequest(in)
	a, err := req.id("person_id")
	if err != nil {
		return 0, 0, invalidArgument(err)
	}
	b, err := req.id("other_id")
	if err != nil {
		return 0, 0, invalidArgument(err)
	}
	for _, id := range []int64{a, b} {
		if _, err := h.people.Get(ctx, id); err != nil {
			return 0, 0, toStatus(err)
		}
	}
	return a, b, nil
}

func (h *FilmRateHandler) Popular(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	limit, err := req.optionalInt("limit", int64(h.popularDefaultLimit))
	if err != nil {
		return nil, invalidArgument(err)
	}

	q := &aggregation.PopularQuery{Limit: int(limit)}
	if req.has("genre_id") {
		genreID, err := req.id("genre_id")
		if err != nil {
			return nil, invalidArgument(err)
		}
		q.GenreID = &genreID
	}
	if req.has("year") {
		year, err := req.number("year")
		if err != nil {
			return nil, invalidArgument(err)
		}
		y := int(year)
		q.Year = &y
	}

	films, err := h.aggregator.Popular(ctx, q)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"films": listOf(films, rankToMap)})
}

func (h *FilmRateHandler) Usefulness(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	reviewID, err := newRequest(in).id("review_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	return h.usefulness(ctx, reviewID)
}

func (h *FilmRateHandler) usefulness(ctx context.Context, reviewID int64) (*structpb.Struct, error) {
	if _, err := h.reviews.Get(ctx, reviewID); err != nil {
		return nil, toStatus(err)
	}
	useful, err := h.aggregator.Usefulness(ctx, reviewID)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"review_id": reviewID, "useful": useful})
}

// TopReviews lists reviews by usefulness; without film_id it covers every film
func (h *FilmRateHandler) TopReviews(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	var filmID int64
	if req.has("film_id") {
		var err error
		if filmID, err = req.id("film_id"); err != nil {
			return nil, invalidArgument(err)
		}
		if _, err := h.films.Get(ctx, filmID); err != nil {
			return nil, toStatus(err)
		}
	}
	limit, err := req.optionalInt("limit", defaultTopReviews)
	if err != nil {
		return nil, invalidArgument(err)
	}

	reviews, err := h.aggregator.TopReviews(ctx, filmID, int(limit))
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"reviews": listOf(reviews, reviewToMap)})
}

func (h *FilmRateHandler) FilmsByDirector(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	directorID, err := req.id("director_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	if _, err := h.tags.Get(ctx, entities.TagDirector, directorID); err != nil {
		return nil, toStatus(err)
	}

	sortBy := aggregation.DirectorSort(req.str("sort_by"))
	if sortBy == "" {
		sortBy = aggregation.SortByYear
	}
	films, err := h.aggregator.FilmsByDirector(ctx, directorID, sortBy)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"films": listOf(films, rankToMap)})
}

// Search matches query against titles and/or director names; "by" is a
// comma separated subset of title,director and defaults to title
func (h *FilmRateHandler) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	byTitle, byDirector, err := parseSearchTargets(req.str("by"))
	if err != nil {
		return nil, invalidArgument(err)
	}

	films, err := h.aggregator.Search(ctx, &aggregation.SearchQuery{
		Query:      req.str("query"),
		ByTitle:    byTitle,
		ByDirector: byDirector,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"films": listOf(films, rankToMap)})
}

func (h *FilmRateHandler) Feed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	personID, err := newRequest(in).id("person_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	events, err := h.people.Feed(ctx, personID)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{"events": listOf(events, eventToMap)})
}
