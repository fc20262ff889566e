package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/lib/pq"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// expectRow turns an update or delete that touched nothing into ErrNotFound
func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, repositories.ErrNotFound)
	}
	return nil
}

// likePattern escapes s for use as a case-insensitive substring pattern
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

type personRepository struct{ q querier }

const personColumns = `id, email, login, name, birthday`

func scanPerson(row rowScanner) (*entities.Person, error) {
	var p entities.Person
	var birthday sql.NullTime
	if err := row.Scan(&p.ID, &p.Email, &p.Login, &p.Name, &birthday); err != nil {
		return nil, err
	}
	p.Birthday = birthday.Time
	return &p, nil
}

func (r *personRepository) Create(ctx context.Context, person *entities.Person) error {
	query := `INSERT INTO people (email, login, name, birthday) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, person.Email, person.Login, person.Name, nullTime(person.Birthday)).Scan(&person.ID)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (r *personRepository) Get(ctx context.Context, id int64) (*entities.Person, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, id)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (r *personRepository) GetMany(ctx context.Context, ids []int64) ([]*entities.Person, error) {
	if len(ids) == 0 {
		return []*entities.Person{}, nil
	}
	return r.list(ctx, `SELECT `+personColumns+` FROM people WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
}

func (r *personRepository) List(ctx context.Context) ([]*entities.Person, error) {
	return r.list(ctx, `SELECT `+personColumns+` FROM people ORDER BY id`)
}

func (r *personRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Person, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	result := []*entities.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return result, nil
}

func (r *personRepository) Update(ctx context.Context, person *entities.Person) error {
	query := `UPDATE people SET email = $2, login = $3, name = $4, birthday = $5 WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, person.ID, person.Email, person.Login, person.Name, nullTime(person.Birthday))
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	return expectRow(res, "person", person.ID)
}

func (r *personRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return expectRow(res, "person", id)
}

type filmRepository struct{ q querier }

const filmColumns = `id, title, description, release_date, duration_minutes`

func scanFilm(row rowScanner) (*entities.Film, error) {
	var f entities.Film
	var released sql.NullTime
	if err := row.Scan(&f.ID, &f.Title, &f.Description, &released, &f.DurationMinutes); err != nil {
		return nil, err
	}
	f.ReleaseDate = released.Time
	return &f, nil
}

func (r *filmRepository) Create(ctx context.Context, film *entities.Film) error {
	query := `
		INSERT INTO films (title, description, release_date, duration_minutes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, film.Title, film.Description, nullTime(film.ReleaseDate), film.DurationMinutes).Scan(&film.ID)
	if err != nil {
		return fmt.Errorf("failed to create film: %w", err)
	}
	return nil
}

func (r *filmRepository) Get(ctx context.Context, id int64) (*entities.Film, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM films WHERE id = $1`, id)
	f, err := scanFilm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("film %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get film: %w", err)
	}
	return f, nil
}

func (r *filmRepository) List(ctx context.Context, filter *repositories.FilmFilter) ([]*entities.Film, error) {
	query := `SELECT ` + filmColumns + ` FROM films WHERE 1=1`
	args := []any{}
	argIdx := 1

	// Build dynamic WHERE clause based on filter
	if filter != nil {
		if filter.IDs != nil {
			if len(filter.IDs) == 0 {
				return []*entities.Film{}, nil
			}
			query += fmt.Sprintf(" AND id = ANY($%d)", argIdx)
			args = append(args, pq.Array(filter.IDs))
			argIdx++
		}
		if filter.ReleaseYear != 0 {
			query += fmt.Sprintf(" AND EXTRACT(YEAR FROM release_date) = $%d", argIdx)
			args = append(args, filter.ReleaseYear)
			argIdx++
		}
		if filter.TitleContains != "" {
			query += fmt.Sprintf(" AND title ILIKE $%d", argIdx)
			args = append(args, likePattern(filter.TitleContains))
		}
	}
	query += " ORDER BY id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query films: %w", err)
	}
	defer rows.Close()

	result := []*entities.Film{}
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan film: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating films: %w", err)
	}
	return result, nil
}

func (r *filmRepository) Update(ctx context.Context, film *entities.Film) error {
	query := `
		UPDATE films
		SET title = $2, description = $3, release_date = $4, duration_minutes = $5
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, query, film.ID, film.Title, film.Description, nullTime(film.ReleaseDate), film.DurationMinutes)
	if err != nil {
		return fmt.Errorf("failed to update film: %w", err)
	}
	return expectRow(res, "film", film.ID)
}

func (r *filmRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM films WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete film: %w", err)
	}
	return expectRow(res, "film", id)
}

type tagRepository struct{ q querier }

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("invalid tag: %w", err)
	}
	query := `INSERT INTO tags (kind, name, description) VALUES ($1, $2, $3) RETURNING id`
	if err := r.q.QueryRowContext(ctx, query, tag.Kind, tag.Name, tag.Description).Scan(&tag.ID); err != nil {
		return fmt.Errorf("failed to create %s: %w", tag.Kind, err)
	}
	return nil
}

func (r *tagRepository) Get(ctx context.Context, kind entities.TagKind, id int64) (*entities.Tag, error) {
	tag := &entities.Tag{Kind: kind, ID: id}
	query := `SELECT name, description FROM tags WHERE id = $1 AND kind = $2`
	err := r.q.QueryRowContext(ctx, query, id, kind).Scan(&tag.Name, &tag.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind, id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return tag, nil
}

func (r *tagRepository) List(ctx context.Context, kind entities.TagKind, nameContains string) ([]*entities.Tag, error) {
	query := `SELECT id, name, description FROM tags WHERE kind = $1`
	args := []any{kind}
	if nameContains != "" {
		query += ` AND name ILIKE $2`
		args = append(args, likePattern(nameContains))
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s tags: %w", kind, err)
	}
	defer rows.Close()

	var result []*entities.Tag
	for rows.Next() {
		tag := &entities.Tag{Kind: kind}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return result, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	query := `UPDATE tags SET name = $3, description = $4 WHERE id = $1 AND kind = $2`
	res, err := r.q.ExecContext(ctx, query, tag.ID, tag.Kind, tag.Name, tag.Description)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", tag.Kind, err)
	}
	return expectRow(res, string(tag.Kind), tag.ID)
}

func (r *tagRepository) Delete(ctx context.Context, kind entities.TagKind, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tags WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return expectRow(res, string(kind), id)
}

type reviewRepository struct{ q querier }

const reviewColumns = `id, film_id, person_id, content, is_positive`

func (r *reviewRepository) Create(ctx context.Context, review *entities.Review) error {
	query := `
		INSERT INTO reviews (film_id, person_id, content, is_positive)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, review.FilmID, review.PersonID, review.Content, review.IsPositive).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Get(ctx context.Context, id int64) (*entities.Review, error) {
	var rv entities.Review
	row := r.q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	if err := row.Scan(&rv.ID, &rv.FilmID, &rv.PersonID, &rv.Content, &rv.IsPositive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &rv, nil
}

func (r *reviewRepository) ListByFilm(ctx context.Context, filmID int64) ([]*entities.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE film_id = $1 ORDER BY id`, filmID)
}

func (r *reviewRepository) ListByPerson(ctx context.Context, personID int64) ([]*entities.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE person_id = $1 ORDER BY id`, personID)
}

func (r *reviewRepository) List(ctx context.Context) ([]*entities.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY id`)
}

func (r *reviewRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Review, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var result []*entities.Review
	for rows.Next() {
		var rv entities.Review
		if err := rows.Scan(&rv.ID, &rv.FilmID, &rv.PersonID, &rv.Content, &rv.IsPositive); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		result = append(result, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return result, nil
}

// Update changes the content and polarity only; film and author are fixed
func (r *reviewRepository) Update(ctx context.Context, review *entities.Review) error {
	query := `UPDATE reviews SET content = $2, is_positive = $3 WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, review.ID, review.Content, review.IsPositive)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return expectRow(res, "review", review.ID)
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return expectRow(res, "review", id)
}

type feedRepository struct{ q querier }

func (r *feedRepository) Append(ctx context.Context, event *entities.FeedEvent) error {
	query := `
		INSERT INTO feed_events (occurred_at, person_id, event_type, operation, entity_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		event.Timestamp, event.PersonID, event.EventType, event.Operation, event.EntityID,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to append feed event: %w", err)
	}
	return nil
}

func (r *feedRepository) ListByPerson(ctx context.Context, personID int64) ([]*entities.FeedEvent, error) {
	query := `
		SELECT id, occurred_at, person_id, event_type, operation, entity_id
		FROM feed_events
		WHERE person_id = $1
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	var result []*entities.FeedEvent
	for rows.Next() {
		var ev entities.FeedEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.PersonID, &ev.EventType, &ev.Operation, &ev.EntityID); err != nil {
			return nil, fmt.Errorf("failed to scan feed event: %w", err)
		}
		result = append(result, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed: %w", err)
	}
	return result, nil
}

func (r *feedRepository) DeleteByPerson(ctx context.Context, personID int64) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM feed_events WHERE person_id = $1`, personID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
