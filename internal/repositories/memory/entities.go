package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

type personRepository struct{ s *Store }

func (r *personRepository) Create(ctx context.Context, person *entities.Person) error {
	defer r.s.write()()

	person.ID = r.s.nextID("people")
	stored := *person
	r.s.st.people[person.ID] = &stored
	r.s.onRollback(restore(r.s.st.people, person.ID, nil))
	return nil
}

func (r *personRepository) Get(ctx context.Context, id int64) (*entities.Person, error) {
	defer r.s.read()()

	p, ok := r.s.st.people[id]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", id, repositories.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *personRepository) GetMany(ctx context.Context, ids []int64) ([]*entities.Person, error) {
	defer r.s.read()()

	result := make([]*entities.Person, 0, len(ids))
	for _, id := range sortedUnique(ids) {
		if p, ok := r.s.st.people[id]; ok {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *personRepository) List(ctx context.Context) ([]*entities.Person, error) {
	defer r.s.read()()

	result := make([]*entities.Person, 0, len(r.s.st.people))
	for _, id := range sortedKeys(r.s.st.people) {
		cp := *r.s.st.people[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *personRepository) Update(ctx context.Context, person *entities.Person) error {
	defer r.s.write()()

	prev, ok := r.s.st.people[person.ID]
	if !ok {
		return fmt.Errorf("person %d: %w", person.ID, repositories.ErrNotFound)
	}
	stored := *person
	r.s.st.people[person.ID] = &stored
	r.s.onRollback(restore(r.s.st.people, person.ID, prev))
	return nil
}

func (r *personRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.write()()

	prev, ok := r.s.st.people[id]
	if !ok {
		return fmt.Errorf("person %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.st.people, id)
	r.s.onRollback(restore(r.s.st.people, id, prev))
	return nil
}

type filmRepository struct{ s *Store }

// filmRecord strips the ledger-backed association fields
func filmRecord(f *entities.Film) *entities.Film {
	cp := *f
	cp.GenreIDs = nil
	cp.DirectorIDs = nil
	cp.ClassificationID = 0
	return &cp
}

func (r *filmRepository) Create(ctx context.Context, film *entities.Film) error {
	defer r.s.write()()

	film.ID = r.s.nextID("films")
	r.s.st.films[film.ID] = filmRecord(film)
	r.s.onRollback(restore(r.s.st.films, film.ID, nil))
	return nil
}

func (r *filmRepository) Get(ctx context.Context, id int64) (*entities.Film, error) {
	defer r.s.read()()

	f, ok := r.s.st.films[id]
	if !ok {
		return nil, fmt.Errorf("film %d: %w", id, repositories.ErrNotFound)
	}
	return filmRecord(f), nil
}

func (r *filmRepository) List(ctx context.Context, filter *repositories.FilmFilter) ([]*entities.Film, error) {
	defer r.s.read()()

	ids := sortedKeys(r.s.st.films)
	if filter != nil && filter.IDs != nil {
		ids = sortedUnique(filter.IDs)
	}

	result := make([]*entities.Film, 0, len(ids))
	for _, id := range ids {
		f, ok := r.s.st.films[id]
		if !ok {
			continue
		}
		if filter != nil {
			if filter.ReleaseYear != 0 && f.ReleaseYear() != filter.ReleaseYear {
				continue
			}
			if filter.TitleContains != "" && !containsFold(f.Title, filter.TitleContains) {
				continue
			}
		}
		result = append(result, filmRecord(f))
	}
	return result, nil
}

func (r *filmRepository) Update(ctx context.Context, film *entities.Film) error {
	defer r.s.write()()

	prev, ok := r.s.st.films[film.ID]
	if !ok {
		return fmt.Errorf("film %d: %w", film.ID, repositories.ErrNotFound)
	}
	r.s.st.films[film.ID] = filmRecord(film)
	r.s.onRollback(restore(r.s.st.films, film.ID, prev))
	return nil
}

func (r *filmRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.write()()

	prev, ok := r.s.st.films[id]
	if !ok {
		return fmt.Errorf("film %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.st.films, id)
	r.s.onRollback(restore(r.s.st.films, id, prev))
	return nil
}

type tagRepository struct{ s *Store }

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("invalid tag: %w", err)
	}
	defer r.s.write()()

	tag.ID = r.s.nextID("tags")
	stored := *tag
	r.s.st.tags[tag.ID] = &stored
	r.s.onRollback(restore(r.s.st.tags, tag.ID, nil))
	return nil
}

func (r *tagRepository) Get(ctx context.Context, kind entities.TagKind, id int64) (*entities.Tag, error) {
	defer r.s.read()()

	t, ok := r.s.st.tags[id]
	if !ok || t.Kind != kind {
		return nil, fmt.Errorf("%s %d: %w", kind, id, repositories.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *tagRepository) List(ctx context.Context, kind entities.TagKind, nameContains string) ([]*entities.Tag, error) {
	defer r.s.read()()

	var result []*entities.Tag
	for _, id := range sortedKeys(r.s.st.tags) {
		t := r.s.st.tags[id]
		if t.Kind != kind {
			continue
		}
		if nameContains != "" && !containsFold(t.Name, nameContains) {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	return result, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	defer r.s.write()()

	prev, ok := r.s.st.tags[tag.ID]
	if !ok || prev.Kind != tag.Kind {
		return fmt.Errorf("%s %d: %w", tag.Kind, tag.ID, repositories.ErrNotFound)
	}
	stored := *tag
	r.s.st.tags[tag.ID] = &stored
	r.s.onRollback(restore(r.s.st.tags, tag.ID, prev))
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, kind entities.TagKind, id int64) error {
	defer r.s.write()()

	prev, ok := r.s.st.tags[id]
	if !ok || prev.Kind != kind {
		return fmt.Errorf("%s %d: %w", kind, id, repositories.ErrNotFound)
	}
	delete(r.s.st.tags, id)
	r.s.onRollback(restore(r.s.st.tags, id, prev))
	return nil
}

type reviewRepository struct{ s *Store }

func (r *reviewRepository) Create(ctx context.Context, review *entities.Review) error {
	defer r.s.write()()

	review.ID = r.s.nextID("reviews")
	stored := *review
	stored.Useful = 0
	r.s.st.reviews[review.ID] = &stored
	r.s.onRollback(restore(r.s.st.reviews, review.ID, nil))
	return nil
}

func (r *reviewRepository) Get(ctx context.Context, id int64) (*entities.Review, error) {
	defer r.s.read()()

	rv, ok := r.s.st.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %d: %w", id, repositories.ErrNotFound)
	}
	cp := *rv
	return &cp, nil
}

func (r *reviewRepository) ListByFilm(ctx context.Context, filmID int64) ([]*entities.Review, error) {
	return r.list(func(rv *entities.Review) bool { return rv.FilmID == filmID }), nil
}

func (r *reviewRepository) ListByPerson(ctx context.Context, personID int64) ([]*entities.Review, error) {
	return r.list(func(rv *entities.Review) bool { return rv.PersonID == personID }), nil
}

func (r *reviewRepository) List(ctx context.Context) ([]*entities.Review, error) {
	return r.list(func(*entities.Review) bool { return true }), nil
}

func (r *reviewRepository) list(keep func(*entities.Review) bool) []*entities.Review {
	defer r.s.read()()

	var result []*entities.Review
	for _, id := range sortedKeys(r.s.st.reviews) {
		rv := r.s.st.reviews[id]
		if keep(rv) {
			cp := *rv
			result = append(result, &cp)
		}
	}
	return result
}

func (r *reviewRepository) Update(ctx context.Context, review *entities.Review) error {
	defer r.s.write()()

	prev, ok := r.s.st.reviews[review.ID]
	if !ok {
		return fmt.Errorf("review %d: %w", review.ID, repositories.ErrNotFound)
	}
	// Film and author of a review never change
	stored := *prev
	stored.Content = review.Content
	stored.IsPositive = review.IsPositive
	r.s.st.reviews[review.ID] = &stored
	r.s.onRollback(restore(r.s.st.reviews, review.ID, prev))
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.write()()

	prev, ok := r.s.st.reviews[id]
	if !ok {
		return fmt.Errorf("review %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.st.reviews, id)
	r.s.onRollback(restore(r.s.st.reviews, id, prev))
	return nil
}

type feedRepository struct{ s *Store }

func (r *feedRepository) Append(ctx context.Context, event *entities.FeedEvent) error {
	defer r.s.write()()

	event.ID = r.s.nextID("feed_events")
	stored := *event
	r.s.st.feed[event.ID] = &stored
	r.s.onRollback(restore(r.s.st.feed, event.ID, nil))
	return nil
}

func (r *feedRepository) ListByPerson(ctx context.Context, personID int64) ([]*entities.FeedEvent, error) {
	defer r.s.read()()

	var result []*entities.FeedEvent
	for _, id := range sortedKeys(r.s.st.feed) {
		if ev := r.s.st.feed[id]; ev.PersonID == personID {
			cp := *ev
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *feedRepository) DeleteByPerson(ctx context.Context, personID int64) (int, error) {
	defer r.s.write()()

	removed := 0
	for id, ev := range r.s.st.feed {
		if ev.PersonID != personID {
			continue
		}
		delete(r.s.st.feed, id)
		r.s.onRollback(restore(r.s.st.feed, id, ev))
		removed++
	}
	return removed, nil
}

func sortedKeys[T any](m map[int64]*T) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedUnique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
