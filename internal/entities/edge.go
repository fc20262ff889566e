package entities

import (
	"fmt"
	"time"
)

// RelationKind identifies one of the ledger's association kinds
type RelationKind string

const (
	KindFriendship     RelationKind = "friendship"     // person -> person
	KindLike           RelationKind = "like"           // person -> film
	KindGenre          RelationKind = "genre"          // film -> genre
	KindClassification RelationKind = "classification" // film -> classification
	KindDirector       RelationKind = "director"       // film -> director
	KindReviewVote     RelationKind = "review_vote"    // person -> review, payload +1/-1
)

// AllKinds lists every relation kind known to the ledger
var AllKinds = []RelationKind{
	KindFriendship,
	KindLike,
	KindGenre,
	KindClassification,
	KindDirector,
	KindReviewVote,
}

// Valid reports whether k is a known relation kind
func (k RelationKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsTag reports whether k associates a film with a tag entity
func (k RelationKind) IsTag() bool {
	return k == KindGenre || k == KindClassification || k == KindDirector
}

// Ends returns the entity types on the left and right side of k
func (k RelationKind) Ends() (left, right EntityType) {
	switch k {
	case KindFriendship:
		return EntityPerson, EntityPerson
	case KindLike:
		return EntityPerson, EntityFilm
	case KindGenre:
		return EntityFilm, EntityGenre
	case KindClassification:
		return EntityFilm, EntityClassification
	case KindDirector:
		return EntityFilm, EntityDirector
	case KindReviewVote:
		return EntityPerson, EntityReview
	}
	return "", ""
}

// Edge represents one row of the relation ledger
// Example: like:7->42 means person 7 likes film 42
type Edge struct {
	Kind      RelationKind
	LeftID    int64
	RightID   int64
	Payload   int // Only review votes carry a payload (+1 / -1)
	CreatedAt time.Time
}

// String returns a string representation of the edge
// Format: kind:left->right[=payload]
func (e *Edge) String() string {
	if e.Payload != 0 {
		return fmt.Sprintf("%s:%d->%d=%+d", e.Kind, e.LeftID, e.RightID, e.Payload)
	}
	return fmt.Sprintf("%s:%d->%d", e.Kind, e.LeftID, e.RightID)
}

// Validate checks if the edge is well formed
func (e *Edge) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown relation kind %q", e.Kind)
	}
	if e.LeftID <= 0 {
		return fmt.Errorf("left ID must be positive")
	}
	if e.RightID <= 0 {
		return fmt.Errorf("right ID must be positive")
	}
	if e.Kind == KindReviewVote {
		if e.Payload != int(VoteLike) && e.Payload != int(VoteDislike) {
			return fmt.Errorf("review vote payload must be +1 or -1, got %d", e.Payload)
		}
	} else if e.Payload != 0 {
		return fmt.Errorf("relation %s does not carry a payload", e.Kind)
	}
	return nil
}

// RightIDs returns the right-hand ids of the given edges in order
func RightIDs(edges []*Edge) []int64 {
	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.RightID)
	}
	return ids
}

// LeftIDs returns the left-hand ids of the given edges in order
func LeftIDs(edges []*Edge) []int64 {
	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.LeftID)
	}
	return ids
}
