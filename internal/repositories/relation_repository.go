package repositories

import (
	"context"

	"github.com/asakaida/filmrate/internal/entities"
)

// Side selects which end of an edge a lookup or sweep matches
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// RelationRepository is the relation ledger: a mapping from (kind, left, right)
// to payload. It does not verify that the referenced entities exist.
type RelationRepository interface {
	// AddEdge inserts the edge if absent and reports whether a row was inserted
	AddEdge(ctx context.Context, edge *entities.Edge) (bool, error)

	// RemoveEdge deletes the edge if present and reports whether a row was deleted
	RemoveEdge(ctx context.Context, kind entities.RelationKind, leftID, rightID int64) (bool, error)

	// EdgesFrom retrieves the edges of kind whose left side is leftID, ordered by right ID
	EdgesFrom(ctx context.Context, kind entities.RelationKind, leftID int64) ([]*entities.Edge, error)

	// EdgesTo retrieves the edges of kind whose right side is rightID, ordered by left ID
	EdgesTo(ctx context.Context, kind entities.RelationKind, rightID int64) ([]*entities.Edge, error)

	// RemoveAll deletes every edge of kind whose id on the given side equals id
	RemoveAll(ctx context.Context, kind entities.RelationKind, side Side, id int64) (int, error)

	// CountByRight counts edges of kind per right ID. A nil rightIDs counts all
	// right IDs; IDs without edges are absent from the result.
	CountByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error)

	// SumByRight sums edge payloads of kind per right ID, with the same rightIDs
	// semantics as CountByRight
	SumByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error)
}
