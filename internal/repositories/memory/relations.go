package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

type relationRepository struct{ s *Store }

func (r *relationRepository) AddEdge(ctx context.Context, edge *entities.Edge) (bool, error) {
	if err := edge.Validate(); err != nil {
		return false, fmt.Errorf("invalid edge: %w", err)
	}
	defer r.s.write()()

	rows := r.s.st.edges[edge.Kind]
	key := edgeKey{left: edge.LeftID, right: edge.RightID}
	if _, exists := rows[key]; exists {
		return false, nil
	}

	stored := *edge
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	rows[key] = &stored
	r.s.onRollback(func() { delete(rows, key) })
	return true, nil
}

func (r *relationRepository) RemoveEdge(ctx context.Context, kind entities.RelationKind, leftID, rightID int64) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown relation kind %q", kind)
	}
	defer r.s.write()()

	rows := r.s.st.edges[kind]
	key := edgeKey{left: leftID, right: rightID}
	prev, exists := rows[key]
	if !exists {
		return false, nil
	}
	delete(rows, key)
	r.s.onRollback(func() { rows[key] = prev })
	return true, nil
}

func (r *relationRepository) EdgesFrom(ctx context.Context, kind entities.RelationKind, leftID int64) ([]*entities.Edge, error) {
	edges, err := r.match(kind, repositories.SideLeft, leftID)
	if err != nil {
		return nil, err
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].RightID < edges[j].RightID })
	return edges, nil
}

func (r *relationRepository) EdgesTo(ctx context.Context, kind entities.RelationKind, rightID int64) ([]*entities.Edge, error) {
	edges, err := r.match(kind, repositories.SideRight, rightID)
	if err != nil {
		return nil, err
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].LeftID < edges[j].LeftID })
	return edges, nil
}

func (r *relationRepository) RemoveAll(ctx context.Context, kind entities.RelationKind, side repositories.Side, id int64) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown relation kind %q", kind)
	}
	defer r.s.write()()

	rows := r.s.st.edges[kind]
	removed := 0
	for key, edge := range rows {
		if sideID(key, side) != id {
			continue
		}
		delete(rows, key)
		k, prev := key, edge
		r.s.onRollback(func() { rows[k] = prev })
		removed++
	}
	return removed, nil
}

func (r *relationRepository) CountByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error) {
	return r.aggregate(kind, rightIDs, func(*entities.Edge) int { return 1 })
}

func (r *relationRepository) SumByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error) {
	return r.aggregate(kind, rightIDs, func(e *entities.Edge) int { return e.Payload })
}

func (r *relationRepository) aggregate(kind entities.RelationKind, rightIDs []int64, value func(*entities.Edge) int) (map[int64]int, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown relation kind %q", kind)
	}
	defer r.s.read()()

	var wanted map[int64]struct{}
	if rightIDs != nil {
		wanted = make(map[int64]struct{}, len(rightIDs))
		for _, id := range rightIDs {
			wanted[id] = struct{}{}
		}
	}

	result := make(map[int64]int)
	for key, edge := range r.s.st.edges[kind] {
		if wanted != nil {
			if _, ok := wanted[key.right]; !ok {
				continue
			}
		}
		result[key.right] += value(edge)
	}
	return result, nil
}

func (r *relationRepository) match(kind entities.RelationKind, side repositories.Side, id int64) ([]*entities.Edge, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown relation kind %q", kind)
	}
	defer r.s.read()()

	var edges []*entities.Edge
	for key, edge := range r.s.st.edges[kind] {
		if sideID(key, side) == id {
			cp := *edge
			edges = append(edges, &cp)
		}
	}
	return edges, nil
}

func sideID(key edgeKey, side repositories.Side) int64 {
	if side == repositories.SideRight {
		return key.right
	}
	return key.left
}
