package entities

// EntityType names a kind of record held by the entity store
type EntityType string

const (
	EntityPerson         EntityType = "person"
	EntityFilm           EntityType = "film"
	EntityGenre          EntityType = "genre"
	EntityClassification EntityType = "classification"
	EntityDirector       EntityType = "director"
	EntityReview         EntityType = "review"
)

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityFilm, EntityGenre, EntityClassification, EntityDirector, EntityReview:
		return true
	}
	return false
}

// TagKind returns the tag kind for tag entity types
func (t EntityType) TagKind() (TagKind, bool) {
	switch t {
	case EntityGenre:
		return TagGenre, true
	case EntityClassification:
		return TagClassification, true
	case EntityDirector:
		return TagDirector, true
	}
	return "", false
}
