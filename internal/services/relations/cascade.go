package relations

import (
	"context"
	"fmt"
	"sort"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// Sweep selects the ledger rows of one kind whose given side holds the deleted id
type Sweep struct {
	Kind entities.RelationKind
	Side repositories.Side
}

// SweepPlan lists, per entity type, every ledger sweep a deletion performs
// before the entity record itself is removed. Dependent reviews of films and
// people are cascaded separately through the review plan.
var SweepPlan = map[entities.EntityType][]Sweep{
	entities.EntityGenre: {
		{Kind: entities.KindGenre, Side: repositories.SideRight},
	},
	entities.EntityClassification: {
		{Kind: entities.KindClassification, Side: repositories.SideRight},
	},
	entities.EntityDirector: {
		{Kind: entities.KindDirector, Side: repositories.SideRight},
	},
	entities.EntityPerson: {
		{Kind: entities.KindFriendship, Side: repositories.SideLeft},
		{Kind: entities.KindFriendship, Side: repositories.SideRight},
		{Kind: entities.KindLike, Side: repositories.SideLeft},
		{Kind: entities.KindReviewVote, Side: repositories.SideLeft},
	},
	entities.EntityFilm: {
		{Kind: entities.KindLike, Side: repositories.SideRight},
		{Kind: entities.KindGenre, Side: repositories.SideLeft},
		{Kind: entities.KindClassification, Side: repositories.SideLeft},
		{Kind: entities.KindDirector, Side: repositories.SideLeft},
	},
	entities.EntityReview: {
		{Kind: entities.KindReviewVote, Side: repositories.SideRight},
	},
}

// CascadeDelete removes every edge that mentions the entity, then the entity
// itself, as one atomic unit. Reviews of a deleted film and reviews written by
// a deleted person are cascaded too.
func (e *Engine) CascadeDelete(ctx context.Context, entityType entities.EntityType, id int64) error {
	return e.Run(ctx, func(ctx context.Context, u *Unit) error {
		if err := u.Store.Lock(ctx, entityType, id); err != nil {
			return fmt.Errorf("failed to lock %s %d: %w", entityType, id, err)
		}

		// A review deleted on its own shows up in its author's feed
		if entityType == entities.EntityReview {
			review, err := u.Store.Reviews().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to read review %d: %w", id, err)
			}
			if err := u.Record(ctx, review.PersonID, entities.EventReview, entities.OpRemove, id); err != nil {
				return err
			}
		}

		return e.cascade(ctx, u.Store, entityType, id)
	})
}

func (e *Engine) cascade(ctx context.Context, tx repositories.Store, entityType entities.EntityType, id int64) error {
	plan, ok := SweepPlan[entityType]
	if !ok {
		return fmt.Errorf("%w: unknown entity type %q", repositories.ErrInvalidArgument, entityType)
	}

	if err := e.cascadeDependents(ctx, tx, entityType, id); err != nil {
		return err
	}

	swept := 0
	for _, sweep := range plan {
		n, err := tx.Relations().RemoveAll(ctx, sweep.Kind, sweep.Side, id)
		if err != nil {
			return fmt.Errorf("failed to sweep %s edges (%s side) of %s %d: %w", sweep.Kind, sweep.Side, entityType, id, err)
		}
		e.observe(sweep.Kind, "remove", n)
		swept += n
	}

	if err := removeRecord(ctx, tx, entityType, id); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", entityType, id, err)
	}

	e.logger.Debug().
		Str("entity_type", string(entityType)).
		Int64("id", id).
		Int("edges_swept", swept).
		Msg("cascade delete")
	return nil
}

// cascadeDependents removes the records that cannot outlive the entity
func (e *Engine) cascadeDependents(ctx context.Context, tx repositories.Store, entityType entities.EntityType, id int64) error {
	var reviews []*entities.Review
	var err error

	switch entityType {
	case entities.EntityFilm:
		reviews, err = tx.Reviews().ListByFilm(ctx, id)
	case entities.EntityPerson:
		reviews, err = tx.Reviews().ListByPerson(ctx, id)
		if err == nil {
			_, err = tx.Feed().DeleteByPerson(ctx, id)
		}
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to collect dependents of %s %d: %w", entityType, id, err)
	}

	for _, review := range reviews {
		if err := e.cascade(ctx, tx, entities.EntityReview, review.ID); err != nil {
			return err
		}
	}
	return nil
}

func removeRecord(ctx context.Context, tx repositories.Store, entityType entities.EntityType, id int64) error {
	switch entityType {
	case entities.EntityPerson:
		return tx.People().Delete(ctx, id)
	case entities.EntityFilm:
		return tx.Films().Delete(ctx, id)
	case entities.EntityReview:
		return tx.Reviews().Delete(ctx, id)
	}
	if kind, ok := entityType.TagKind(); ok {
		return tx.Tags().Delete(ctx, kind, id)
	}
	return fmt.Errorf("%w: unknown entity type %q", repositories.ErrInvalidArgument, entityType)
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
