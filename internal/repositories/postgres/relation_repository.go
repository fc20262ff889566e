package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/lib/pq"
)

// relationRepository implements RelationRepository on the relations table,
// whose primary key (kind, left_id, right_id) keeps every edge unique
type relationRepository struct{ q querier }

// AddEdge inserts the edge; an existing edge is left untouched and reported as unchanged
func (r *relationRepository) AddEdge(ctx context.Context, edge *entities.Edge) (bool, error) {
	if err := edge.Validate(); err != nil {
		return false, fmt.Errorf("invalid edge: %w", err)
	}

	createdAt := edge.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO relations (kind, left_id, right_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, left_id, right_id) DO NOTHING
	`
	res, err := r.q.ExecContext(ctx, query, edge.Kind, edge.LeftID, edge.RightID, edge.Payload, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to add relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveEdge deletes the edge; a missing edge is reported as unchanged
func (r *relationRepository) RemoveEdge(ctx context.Context, kind entities.RelationKind, leftID, rightID int64) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown relation kind %q", kind)
	}

	res, err := r.q.ExecContext(ctx,
		`DELETE FROM relations WHERE kind = $1 AND left_id = $2 AND right_id = $3`,
		kind, leftID, rightID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *relationRepository) EdgesFrom(ctx context.Context, kind entities.RelationKind, leftID int64) ([]*entities.Edge, error) {
	return r.edges(ctx, kind, `left_id = $2 ORDER BY right_id`, leftID)
}

func (r *relationRepository) EdgesTo(ctx context.Context, kind entities.RelationKind, rightID int64) ([]*entities.Edge, error) {
	return r.edges(ctx, kind, `right_id = $2 ORDER BY left_id`, rightID)
}

func (r *relationRepository) edges(ctx context.Context, kind entities.RelationKind, where string, id int64) ([]*entities.Edge, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown relation kind %q", kind)
	}

	query := `SELECT left_id, right_id, payload, created_at FROM relations WHERE kind = $1 AND ` + where
	rows, err := r.q.QueryContext(ctx, query, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read relations: %w", err)
	}
	defer rows.Close()

	result := []*entities.Edge{}
	for rows.Next() {
		edge := &entities.Edge{Kind: kind}
		if err := rows.Scan(&edge.LeftID, &edge.RightID, &edge.Payload, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		result = append(result, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}
	return result, nil
}

// RemoveAll deletes every edge of the kind whose given side holds id
func (r *relationRepository) RemoveAll(ctx context.Context, kind entities.RelationKind, side repositories.Side, id int64) (int, error) {
	column, err := sideColumn(side)
	if err != nil {
		return 0, err
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM relations WHERE kind = $1 AND `+column+` = $2`, kind, id)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep relations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *relationRepository) CountByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error) {
	return r.aggregate(ctx, "COUNT(*)", kind, rightIDs)
}

func (r *relationRepository) SumByRight(ctx context.Context, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error) {
	return r.aggregate(ctx, "SUM(payload)", kind, rightIDs)
}

// aggregate groups the edges of a kind by right id; nil rightIDs means every right id
func (r *relationRepository) aggregate(ctx context.Context, expr string, kind entities.RelationKind, rightIDs []int64) (map[int64]int, error) {
	result := make(map[int64]int)
	if rightIDs != nil && len(rightIDs) == 0 {
		return result, nil
	}

	query := `SELECT right_id, ` + expr + ` FROM relations WHERE kind = $1`
	args := []any{kind}
	if rightIDs != nil {
		query += ` AND right_id = ANY($2)`
		args = append(args, pq.Array(rightIDs))
	}
	query += ` GROUP BY right_id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, value int64
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		result[id] = int(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}
	return result, nil
}

func sideColumn(side repositories.Side) (string, error) {
	switch side {
	case repositories.SideLeft:
		return "left_id", nil
	case repositories.SideRight:
		return "right_id", nil
	}
	return "", fmt.Errorf("unknown relation side %d", int(side))
}
