package entities

import "fmt"

// TagKind identifies the type of a tag entity
type TagKind string

const (
	TagGenre          TagKind = "genre"
	TagClassification TagKind = "classification"
	TagDirector       TagKind = "director"
)

// Valid reports whether k is a known tag kind
func (k TagKind) Valid() bool {
	return k == TagGenre || k == TagClassification || k == TagDirector
}

// RelationKind returns the ledger kind that links films to tags of this kind
func (k TagKind) RelationKind() RelationKind {
	switch k {
	case TagGenre:
		return KindGenre
	case TagClassification:
		return KindClassification
	case TagDirector:
		return KindDirector
	}
	return ""
}

// Tag represents a genre, a classification (age rating) or a director.
// All three share one shape and are referenced by many films.
type Tag struct {
	Kind        TagKind
	ID          int64
	Name        string
	Description string // Only classifications carry a description
}

// Validate checks if the tag record is valid
func (t *Tag) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("unknown tag kind %q", t.Kind)
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// EntityType returns the entity store type holding tags of this kind
func (k TagKind) EntityType() EntityType {
	switch k {
	case TagGenre:
		return EntityGenre
	case TagClassification:
		return EntityClassification
	case TagDirector:
		return EntityDirector
	}
	return ""
}
