package cached

import (
	"context"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// personRepository caches Get when s is set; writes always invalidate
type personRepository struct {
	repositories.PersonRepository
	s          *Store
	invalidate func(ctx context.Context, keys ...string)
}

func (r *personRepository) Get(ctx context.Context, id int64) (*entities.Person, error) {
	if r.s == nil {
		return r.PersonRepository.Get(ctx, id)
	}

	key := personKey(id)
	var p entities.Person
	if r.s.load(ctx, "person", key, &p) {
		return &p, nil
	}

	epoch := r.s.currentEpoch()
	found, err := r.PersonRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.s.fill(ctx, key, epoch, found)
	return found, nil
}

func (r *personRepository) Update(ctx context.Context, person *entities.Person) error {
	if err := r.PersonRepository.Update(ctx, person); err != nil {
		return err
	}
	r.invalidate(ctx, personKey(person.ID))
	return nil
}

func (r *personRepository) Delete(ctx context.Context, id int64) error {
	if err := r.PersonRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, personKey(id))
	return nil
}

// filmRepository caches Get when s is set; writes always invalidate
type filmRepository struct {
	repositories.FilmRepository
	s          *Store
	invalidate func(ctx context.Context, keys ...string)
}

func (r *filmRepository) Get(ctx context.Context, id int64) (*entities.Film, error) {
	if r.s == nil {
		return r.FilmRepository.Get(ctx, id)
	}

	key := filmKey(id)
	var f entities.Film
	if r.s.load(ctx, "film", key, &f) {
		return &f, nil
	}

	epoch := r.s.currentEpoch()
	found, err := r.FilmRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.s.fill(ctx, key, epoch, found)
	return found, nil
}

func (r *filmRepository) Update(ctx context.Context, film *entities.Film) error {
	if err := r.FilmRepository.Update(ctx, film); err != nil {
		return err
	}
	r.invalidate(ctx, filmKey(film.ID))
	return nil
}

func (r *filmRepository) Delete(ctx context.Context, id int64) error {
	if err := r.FilmRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, filmKey(id))
	return nil
}
