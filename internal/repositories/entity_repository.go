package repositories

import (
	"context"

	"github.com/asakaida/filmrate/internal/entities"
)

// PersonRepository defines the interface for person data access
type PersonRepository interface {
	// Create stores a new person and assigns its ID
	Create(ctx context.Context, person *entities.Person) error

	// Get retrieves a person by ID, ErrNotFound if absent
	Get(ctx context.Context, id int64) (*entities.Person, error)

	// GetMany retrieves the people with the given IDs ordered by ID; unknown IDs are skipped
	GetMany(ctx context.Context, ids []int64) ([]*entities.Person, error)

	// List retrieves all people ordered by ID
	List(ctx context.Context) ([]*entities.Person, error)

	// Update replaces the stored fields of an existing person
	Update(ctx context.Context, person *entities.Person) error

	// Delete removes the person record only; edges are the caller's concern
	Delete(ctx context.Context, id int64) error
}

// FilmFilter defines filter criteria for listing films
type FilmFilter struct {
	IDs           []int64 // Restrict to these IDs (optional)
	ReleaseYear   int     // Filter by release year (optional, 0 = any)
	TitleContains string  // Case-insensitive substring of the title (optional)
}

// FilmRepository defines the interface for film data access.
// Association fields of entities.Film are ignored on write and left empty on read.
type FilmRepository interface {
	Create(ctx context.Context, film *entities.Film) error
	Get(ctx context.Context, id int64) (*entities.Film, error)

	// List retrieves films matching the filter ordered by ID
	List(ctx context.Context, filter *FilmFilter) ([]*entities.Film, error)

	Update(ctx context.Context, film *entities.Film) error
	Delete(ctx context.Context, id int64) error
}

// TagRepository defines the interface for genre, classification and director data access
type TagRepository interface {
	Create(ctx context.Context, tag *entities.Tag) error
	Get(ctx context.Context, kind entities.TagKind, id int64) (*entities.Tag, error)

	// List retrieves tags of one kind ordered by ID; a non-empty nameContains
	// keeps only case-insensitive substring matches
	List(ctx context.Context, kind entities.TagKind, nameContains string) ([]*entities.Tag, error)

	Update(ctx context.Context, tag *entities.Tag) error
	Delete(ctx context.Context, kind entities.TagKind, id int64) error
}

// ReviewRepository defines the interface for review data access.
// The Useful field is computed from the ledger and never stored.
type ReviewRepository interface {
	Create(ctx context.Context, review *entities.Review) error
	Get(ctx context.Context, id int64) (*entities.Review, error)

	// ListByFilm retrieves the reviews of a film ordered by ID
	ListByFilm(ctx context.Context, filmID int64) ([]*entities.Review, error)

	// ListByPerson retrieves the reviews written by a person ordered by ID
	ListByPerson(ctx context.Context, personID int64) ([]*entities.Review, error)

	// List retrieves every review ordered by ID
	List(ctx context.Context) ([]*entities.Review, error)

	Update(ctx context.Context, review *entities.Review) error
	Delete(ctx context.Context, id int64) error
}

// FeedRepository defines the interface for the per-person activity feed
type FeedRepository interface {
	// Append stores an event and assigns its ID
	Append(ctx context.Context, event *entities.FeedEvent) error

	// ListByPerson retrieves the events of a person ordered by ID
	ListByPerson(ctx context.Context, personID int64) ([]*entities.FeedEvent, error)

	// DeleteByPerson removes every event of a person
	DeleteByPerson(ctx context.Context, personID int64) (int, error)
}
