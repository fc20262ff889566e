package entities

import "fmt"

// Review represents a person's written review of a film
type Review struct {
	ID         int64
	FilmID     int64
	PersonID   int64 // Author
	Content    string
	IsPositive bool
	Useful     int // Sum of review votes, filled in by read paths
}

// Validate checks if the review record is valid
func (r *Review) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	if r.FilmID <= 0 {
		return fmt.Errorf("film ID is required")
	}
	if r.PersonID <= 0 {
		return fmt.Errorf("person ID is required")
	}
	return nil
}
