package relations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/infrastructure/events"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/rs/zerolog"
)

// EngineInterface defines the mutation entry points that affect relations
type EngineInterface interface {
	ReconcileAssociations(ctx context.Context, filmID int64, kind entities.RelationKind, declared []int64) (*ReconcileResult, error)
	Reconcile(ctx context.Context, u *Unit, filmID int64, kind entities.RelationKind, declared []int64) (*ReconcileResult, error)
	CascadeDelete(ctx context.Context, entityType entities.EntityType, id int64) error
	SetFriendship(ctx context.Context, personID, friendID int64, present bool) (bool, error)
	SetLike(ctx context.Context, personID, filmID int64, present bool) (bool, error)
	SetVote(ctx context.Context, personID, reviewID int64, polarity entities.Polarity) error
	Run(ctx context.Context, fn func(ctx context.Context, u *Unit) error) error
}

// MutationObserver is notified of every ledger row the engine inserts or deletes
type MutationObserver interface {
	RecordMutation(kind string, operation string, rows int)
}

var _ EngineInterface = (*Engine)(nil)

// Engine keeps the relation ledger consistent with the entity store
type Engine struct {
	store     repositories.Store
	publisher events.Publisher
	observer  MutationObserver
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine creates a new Engine
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(store repositories.Store, publisher events.Publisher, logger zerolog.Logger) *Engine {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Engine{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "relations").Logger(),
		now:       time.Now,
	}
}

// SetObserver sets the observer for ledger mutations
func (e *Engine) SetObserver(observer MutationObserver) {
	e.observer = observer
}

// Unit is one atomic mutation in progress. Feed events recorded through it
// are stored with the unit and published once it committed.
type Unit struct {
	Store repositories.Store

	engine  *Engine
	pending []*entities.FeedEvent
}

// Record appends a feed event for personID
func (u *Unit) Record(ctx context.Context, personID int64, eventType entities.EventType, op entities.Operation, entityID int64) error {
	ev := &entities.FeedEvent{
		Timestamp: u.engine.now(),
		PersonID:  personID,
		EventType: eventType,
		Operation: op,
		EntityID:  entityID,
	}
	if err := u.Store.Feed().Append(ctx, ev); err != nil {
		return fmt.Errorf("failed to append feed event: %w", err)
	}
	u.pending = append(u.pending, ev)
	return nil
}

// Run executes fn as one atomic unit and publishes the unit's feed events after commit
func (e *Engine) Run(ctx context.Context, fn func(ctx context.Context, u *Unit) error) error {
	var unit *Unit
	err := e.store.Atomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		unit = &Unit{Store: tx, engine: e}
		return fn(ctx, unit)
	})
	if err != nil {
		return err
	}

	for _, ev := range unit.pending {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			// The mutation is committed; a lost notification must not fail it
			e.logger.Warn().Err(err).Int64("event_id", ev.ID).Msg("failed to publish feed event")
		}
	}
	return nil
}

// entityRef names one entity row to lock
type entityRef struct {
	Type entities.EntityType
	ID   int64
}

// lockAll locks every referenced entity for the rest of the unit, in entity
// type then id order so that units locking overlapping sets cannot deadlock.
// A missing entity fails the unit with repositories.ErrNotFound, which keeps
// an edge from being written against a row a concurrent delete removed.
func lockAll(ctx context.Context, tx repositories.Store, refs ...entityRef) error {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].ID < refs[j].ID
	})
	for i, ref := range refs {
		if i > 0 && ref == refs[i-1] {
			continue
		}
		if err := tx.Lock(ctx, ref.Type, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileResult lists the tag ids a reconciliation removed and added
type ReconcileResult struct {
	Removed []int64
	Added   []int64
}

// Changed reports whether the reconciliation touched the ledger
func (r *ReconcileResult) Changed() bool {
	return len(r.Removed) > 0 || len(r.Added) > 0
}

// ReconcileAssociations replaces the film's stored tag set of one kind with
// the declared set using the minimal number of removals and additions.
// An empty declared set clears every association of that kind.
func (e *Engine) ReconcileAssociations(ctx context.Context, filmID int64, kind entities.RelationKind, declared []int64) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := e.Run(ctx, func(ctx context.Context, u *Unit) error {
		var err error
		result, err = e.reconcile(ctx, u.Store, filmID, kind, declared)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reconcile is ReconcileAssociations joined to an enclosing unit
func (e *Engine) Reconcile(ctx context.Context, u *Unit, filmID int64, kind entities.RelationKind, declared []int64) (*ReconcileResult, error) {
	return e.reconcile(ctx, u.Store, filmID, kind, declared)
}

func (e *Engine) reconcile(ctx context.Context, tx repositories.Store, filmID int64, kind entities.RelationKind, declared []int64) (*ReconcileResult, error) {
	if !kind.IsTag() {
		return nil, fmt.Errorf("%w: %q is not a film association kind", repositories.ErrInvalidArgument, kind)
	}
	want := uniqueIDs(declared)
	if kind == entities.KindClassification && len(want) > 1 {
		return nil, fmt.Errorf("%w: a film carries at most one classification, got %d", repositories.ErrInvalidArgument, len(want))
	}

	// Every declared tag stays locked until the unit ends, so a concurrent
	// tag delete either runs first and fails the unit or sweeps the new edge
	_, tagType := kind.Ends()
	refs := []entityRef{{Type: entities.EntityFilm, ID: filmID}}
	for id := range want {
		refs = append(refs, entityRef{Type: tagType, ID: id})
	}
	if err := lockAll(ctx, tx, refs...); err != nil {
		return nil, err
	}

	stored, err := tx.Relations().EdgesFrom(ctx, kind, filmID)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s associations: %w", kind, err)
	}
	have := make(map[int64]struct{}, len(stored))
	for _, edge := range stored {
		have[edge.RightID] = struct{}{}
	}

	result := &ReconcileResult{}
	// Removals go first so a cardinality-one kind never holds two values
	for _, edge := range stored {
		if _, keep := want[edge.RightID]; keep {
			continue
		}
		if _, err := tx.Relations().RemoveEdge(ctx, kind, filmID, edge.RightID); err != nil {
			return nil, fmt.Errorf("failed to remove %s association: %w", kind, err)
		}
		result.Removed = append(result.Removed, edge.RightID)
	}
	for _, id := range sortedIDs(want) {
		if _, exists := have[id]; exists {
			continue
		}
		edge := &entities.Edge{Kind: kind, LeftID: filmID, RightID: id, CreatedAt: e.now()}
		if _, err := tx.Relations().AddEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("failed to add %s association: %w", kind, err)
		}
		result.Added = append(result.Added, id)
	}

	e.observe(kind, "remove", len(result.Removed))
	e.observe(kind, "add", len(result.Added))
	if result.Changed() {
		e.logger.Debug().
			Int64("film_id", filmID).
			Str("kind", string(kind)).
			Ints64("removed", result.Removed).
			Ints64("added", result.Added).
			Msg("reconciled associations")
	}
	return result, nil
}

// SetFriendship adds or removes the single directed friendship personID -> friendID.
// Mutual friendship takes one call per direction.
func (e *Engine) SetFriendship(ctx context.Context, personID, friendID int64, present bool) (bool, error) {
	if personID == friendID {
		return false, fmt.Errorf("%w: a person cannot befriend themselves", repositories.ErrInvalidArgument)
	}
	return e.setEdge(ctx, entities.KindFriendship, personID, friendID, present, entities.EventFriend)
}

// SetLike adds or removes personID's like of filmID
func (e *Engine) SetLike(ctx context.Context, personID, filmID int64, present bool) (bool, error) {
	return e.setEdge(ctx, entities.KindLike, personID, filmID, present, entities.EventLike)
}

// setEdge locks both ends of the edge before touching the ledger
func (e *Engine) setEdge(ctx context.Context, kind entities.RelationKind, leftID, rightID int64, present bool, eventType entities.EventType) (bool, error) {
	leftType, rightType := kind.Ends()
	var changed bool
	err := e.Run(ctx, func(ctx context.Context, u *Unit) error {
		err := lockAll(ctx, u.Store,
			entityRef{Type: leftType, ID: leftID},
			entityRef{Type: rightType, ID: rightID},
		)
		if err != nil {
			return err
		}

		op := entities.OpAdd
		if present {
			changed, err = u.Store.Relations().AddEdge(ctx, &entities.Edge{Kind: kind, LeftID: leftID, RightID: rightID, CreatedAt: e.now()})
		} else {
			op = entities.OpRemove
			changed, err = u.Store.Relations().RemoveEdge(ctx, kind, leftID, rightID)
		}
		if err != nil {
			return fmt.Errorf("failed to set %s edge: %w", kind, err)
		}
		if !changed {
			return nil
		}
		e.observe(kind, string(op), 1)
		return u.Record(ctx, leftID, eventType, op, rightID)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// SetVote replaces personID's vote on reviewID. Any existing vote is removed
// first; VoteNone leaves the pair without a vote.
func (e *Engine) SetVote(ctx context.Context, personID, reviewID int64, polarity entities.Polarity) error {
	if err := polarity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrInvalidArgument, err)
	}

	return e.Run(ctx, func(ctx context.Context, u *Unit) error {
		err := lockAll(ctx, u.Store,
			entityRef{Type: entities.EntityPerson, ID: personID},
			entityRef{Type: entities.EntityReview, ID: reviewID},
		)
		if err != nil {
			return err
		}

		removed, err := u.Store.Relations().RemoveEdge(ctx, entities.KindReviewVote, personID, reviewID)
		if err != nil {
			return fmt.Errorf("failed to clear review vote: %w", err)
		}
		if removed {
			e.observe(entities.KindReviewVote, "remove", 1)
		}
		if polarity == entities.VoteNone {
			return nil
		}

		vote := &entities.Edge{
			Kind:      entities.KindReviewVote,
			LeftID:    personID,
			RightID:   reviewID,
			Payload:   int(polarity),
			CreatedAt: e.now(),
		}
		if _, err := u.Store.Relations().AddEdge(ctx, vote); err != nil {
			return fmt.Errorf("failed to store review vote: %w", err)
		}
		e.observe(entities.KindReviewVote, "add", 1)
		return nil
	})
}

func (e *Engine) observe(kind entities.RelationKind, operation string, rows int) {
	if e.observer != nil && rows > 0 {
		e.observer.RecordMutation(string(kind), operation, rows)
	}
}
