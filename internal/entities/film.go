package entities

import (
	"fmt"
	"time"
)

// Film represents a film record together with its tag associations.
// GenreIDs, DirectorIDs and ClassificationID are read from the relation ledger,
// never from the film row itself.
type Film struct {
	ID               int64
	Title            string
	Description      string
	ReleaseDate      time.Time
	DurationMinutes  int
	ClassificationID int64 // 0 when the film has no classification
	GenreIDs         []int64
	DirectorIDs      []int64
}

// ReleaseYear returns the release year of the film
func (f *Film) ReleaseYear() int {
	return f.ReleaseDate.Year()
}

// Associations returns the declared tag sets keyed by relation kind
func (f *Film) Associations() map[RelationKind][]int64 {
	var classification []int64
	if f.ClassificationID != 0 {
		classification = []int64{f.ClassificationID}
	}
	return map[RelationKind][]int64{
		KindGenre:          f.GenreIDs,
		KindDirector:       f.DirectorIDs,
		KindClassification: classification,
	}
}

// Validate checks if the film record is valid
func (f *Film) Validate() error {
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}
	if f.DurationMinutes < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}
