package relations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/repositories/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// recordingPublisher remembers every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []*entities.FeedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *entities.FeedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// countingObserver sums mutation rows per kind and operation
type countingObserver struct {
	mu    sync.Mutex
	calls map[string]int
}

func (o *countingObserver) RecordMutation(kind string, operation string, rows int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[kind+"/"+operation] += rows
}

type fixture struct {
	store  *memory.Store
	engine *Engine
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	engine := NewEngine(store, pub, zerolog.Nop())
	engine.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return &fixture{store: store, engine: engine, pub: pub}
}

func (f *fixture) person(t *testing.T, login string) int64 {
	t.Helper()
	p := &entities.Person{Email: login + "@example.com", Login: login}
	if err := f.store.People().Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create person: %v", err)
	}
	return p.ID
}

func (f *fixture) film(t *testing.T, title string) int64 {
	t.Helper()
	film := &entities.Film{Title: title, ReleaseDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := f.store.Films().Create(context.Background(), film); err != nil {
		t.Fatalf("failed to create film: %v", err)
	}
	return film.ID
}

func (f *fixture) tag(t *testing.T, kind entities.TagKind, name string) int64 {
	t.Helper()
	tag := &entities.Tag{Kind: kind, Name: name}
	if err := f.store.Tags().Create(context.Background(), tag); err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag.ID
}

func (f *fixture) review(t *testing.T, filmID, personID int64) int64 {
	t.Helper()
	r := &entities.Review{FilmID: filmID, PersonID: personID, Content: "worth it"}
	if err := f.store.Reviews().Create(context.Background(), r); err != nil {
		t.Fatalf("failed to create review: %v", err)
	}
	return r.ID
}

func (f *fixture) rightIDs(t *testing.T, kind entities.RelationKind, left int64) []int64 {
	t.Helper()
	edges, err := f.store.Relations().EdgesFrom(context.Background(), kind, left)
	if err != nil {
		t.Fatalf("EdgesFrom failed: %v", err)
	}
	return entities.RightIDs(edges)
}

func TestEngine_ReconcileAssociations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	film := f.film(t, "Heat")
	g1 := f.tag(t, entities.TagGenre, "Crime")
	g2 := f.tag(t, entities.TagGenre, "Drama")
	g3 := f.tag(t, entities.TagGenre, "Thriller")
	g4 := f.tag(t, entities.TagGenre, "Action")

	t.Run("initial declaration adds every id", func(t *testing.T) {
		res, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{g3, g1, g2})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if diff := cmp.Diff([]int64{g1, g2, g3}, res.Added); diff != "" {
			t.Errorf("Added mismatch (-want +got):\n%s", diff)
		}
		if len(res.Removed) != 0 {
			t.Errorf("Expected no removals, got %v", res.Removed)
		}
	})

	t.Run("same declaration twice changes nothing", func(t *testing.T) {
		res, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{g1, g2, g3})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if res.Changed() {
			t.Errorf("Expected no changes, got removed=%v added=%v", res.Removed, res.Added)
		}
		if diff := cmp.Diff([]int64{g1, g2, g3}, f.rightIDs(t, entities.KindGenre, film)); diff != "" {
			t.Errorf("stored genres mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("diff applies minimal changes", func(t *testing.T) {
		res, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{g2, g4, g4})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if diff := cmp.Diff([]int64{g1, g3}, res.Removed); diff != "" {
			t.Errorf("Removed mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int64{g4}, res.Added); diff != "" {
			t.Errorf("Added mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty declaration clears", func(t *testing.T) {
		if _, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, nil); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got := f.rightIDs(t, entities.KindGenre, film); len(got) != 0 {
			t.Errorf("Expected all genres cleared, got %v", got)
		}
	})
}

func TestEngine_ReconcileClassification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	film := f.film(t, "Up")
	g := f.tag(t, entities.TagClassification, "G")
	pg := f.tag(t, entities.TagClassification, "PG")

	if _, err := f.engine.ReconcileAssociations(ctx, film, entities.KindClassification, []int64{g}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	res, err := f.engine.ReconcileAssociations(ctx, film, entities.KindClassification, []int64{pg})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff(&ReconcileResult{Removed: []int64{g}, Added: []int64{pg}}, res); diff != "" {
		t.Errorf("ReconcileResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{pg}, f.rightIDs(t, entities.KindClassification, film)); diff != "" {
		t.Errorf("stored classification mismatch (-want +got):\n%s", diff)
	}

	_, err = f.engine.ReconcileAssociations(ctx, film, entities.KindClassification, []int64{g, pg})
	if !errors.Is(err, repositories.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for two classifications, got: %v", err)
	}
	if diff := cmp.Diff([]int64{pg}, f.rightIDs(t, entities.KindClassification, film)); diff != "" {
		t.Errorf("rejected reconcile must not change state (-want +got):\n%s", diff)
	}
}

func TestEngine_ReconcileErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.ReconcileAssociations(ctx, 1, entities.KindLike, []int64{1})
	if !errors.Is(err, repositories.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a non-tag kind, got: %v", err)
	}

	_, err = f.engine.ReconcileAssociations(ctx, 404, entities.KindGenre, []int64{1})
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown film, got: %v", err)
	}
}

func TestEngine_CascadeDeleteGenre(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drama := f.tag(t, entities.TagGenre, "Drama")
	comedy := f.tag(t, entities.TagGenre, "Comedy")
	films := []int64{f.film(t, "A"), f.film(t, "B"), f.film(t, "C")}
	for _, film := range films {
		if _, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{drama, comedy}); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
	}

	if err := f.engine.CascadeDelete(ctx, entities.EntityGenre, drama); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, film := range films {
		if diff := cmp.Diff([]int64{comedy}, f.rightIDs(t, entities.KindGenre, film)); diff != "" {
			t.Errorf("film %d genres mismatch (-want +got):\n%s", film, diff)
		}
	}
	if _, err := f.store.Tags().Get(ctx, entities.TagGenre, drama); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected genre to be gone, got: %v", err)
	}
}

func TestEngine_CascadeDeleteFilm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	bob := f.person(t, "bob")
	film := f.film(t, "Alien")
	other := f.film(t, "Aliens")
	director := f.tag(t, entities.TagDirector, "Ridley Scott")

	if _, err := f.engine.ReconcileAssociations(ctx, film, entities.KindDirector, []int64{director}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	for _, like := range [][2]int64{{alice, film}, {bob, film}, {alice, other}} {
		if _, err := f.engine.SetLike(ctx, like[0], like[1], true); err != nil {
			t.Fatalf("SetLike failed: %v", err)
		}
	}
	review := f.review(t, film, alice)
	keep := f.review(t, other, alice)
	if err := f.engine.SetVote(ctx, bob, review, entities.VoteLike); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}
	if err := f.engine.SetVote(ctx, bob, keep, entities.VoteDislike); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}

	if err := f.engine.CascadeDelete(ctx, entities.EntityFilm, film); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := f.store.Films().Get(ctx, film); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected film to be gone, got: %v", err)
	}
	if _, err := f.store.Reviews().Get(ctx, review); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected film review to be gone, got: %v", err)
	}
	if diff := cmp.Diff([]int64{other}, f.rightIDs(t, entities.KindLike, alice)); diff != "" {
		t.Errorf("alice likes mismatch (-want +got):\n%s", diff)
	}
	if got := f.rightIDs(t, entities.KindLike, bob); len(got) != 0 {
		t.Errorf("Expected bob's like to be swept, got %v", got)
	}
	if diff := cmp.Diff([]int64{keep}, f.rightIDs(t, entities.KindReviewVote, bob)); diff != "" {
		t.Errorf("bob votes mismatch (-want +got):\n%s", diff)
	}
	if got := f.rightIDs(t, entities.KindDirector, film); len(got) != 0 {
		t.Errorf("Expected director association to be swept, got %v", got)
	}
	if _, err := f.store.Tags().Get(ctx, entities.TagDirector, director); err != nil {
		t.Errorf("Expected director entity to survive, got: %v", err)
	}
}

func TestEngine_CascadeDeletePerson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	bob := f.person(t, "bob")
	carol := f.person(t, "carol")
	film := f.film(t, "Heat")

	for _, pair := range [][2]int64{{alice, bob}, {bob, alice}, {carol, alice}, {bob, carol}} {
		if _, err := f.engine.SetFriendship(ctx, pair[0], pair[1], true); err != nil {
			t.Fatalf("SetFriendship failed: %v", err)
		}
	}
	if _, err := f.engine.SetLike(ctx, alice, film, true); err != nil {
		t.Fatalf("SetLike failed: %v", err)
	}
	bobReview := f.review(t, film, bob)
	aliceReview := f.review(t, film, alice)
	if err := f.engine.SetVote(ctx, alice, bobReview, entities.VoteLike); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}
	if err := f.engine.SetVote(ctx, carol, aliceReview, entities.VoteLike); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}

	if err := f.engine.CascadeDelete(ctx, entities.EntityPerson, alice); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if diff := cmp.Diff([]int64{carol}, f.rightIDs(t, entities.KindFriendship, bob)); diff != "" {
		t.Errorf("bob friends mismatch (-want +got):\n%s", diff)
	}
	if got := f.rightIDs(t, entities.KindFriendship, carol); len(got) != 0 {
		t.Errorf("Expected carol's friendship to alice to be swept, got %v", got)
	}
	likes, _ := f.store.Relations().EdgesTo(ctx, entities.KindLike, film)
	if len(likes) != 0 {
		t.Errorf("Expected alice's like to be swept, got %d likes", len(likes))
	}
	votes, _ := f.store.Relations().EdgesTo(ctx, entities.KindReviewVote, bobReview)
	if len(votes) != 0 {
		t.Errorf("Expected alice's vote to be swept, got %d votes", len(votes))
	}
	if _, err := f.store.Reviews().Get(ctx, aliceReview); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected alice's review to be gone, got: %v", err)
	}
	if got := f.rightIDs(t, entities.KindReviewVote, carol); len(got) != 0 {
		t.Errorf("Expected votes on alice's review to be swept, got %v", got)
	}
	feed, _ := f.store.Feed().ListByPerson(ctx, alice)
	if len(feed) != 0 {
		t.Errorf("Expected alice's feed to be removed, got %d events", len(feed))
	}
}

func TestEngine_CascadeDeleteUnknown(t *testing.T) {
	f := newFixture(t)
	err := f.engine.CascadeDelete(context.Background(), entities.EntityDirector, 12)
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestEngine_SetFriendshipIsDirected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	bob := f.person(t, "bob")

	changed, err := f.engine.SetFriendship(ctx, alice, bob, true)
	if err != nil || !changed {
		t.Fatalf("Expected friendship to be added, got changed=%v err=%v", changed, err)
	}
	if diff := cmp.Diff([]int64{bob}, f.rightIDs(t, entities.KindFriendship, alice)); diff != "" {
		t.Errorf("alice friends mismatch (-want +got):\n%s", diff)
	}
	if got := f.rightIDs(t, entities.KindFriendship, bob); len(got) != 0 {
		t.Errorf("Expected one-sided friendship, bob lists %v", got)
	}

	changed, err = f.engine.SetFriendship(ctx, alice, bob, true)
	if err != nil || changed {
		t.Errorf("Expected repeated add to be a no-op, got changed=%v err=%v", changed, err)
	}

	changed, err = f.engine.SetFriendship(ctx, bob, alice, false)
	if err != nil || changed {
		t.Errorf("Expected removing an absent edge to be a no-op, got changed=%v err=%v", changed, err)
	}

	if _, err := f.engine.SetFriendship(ctx, alice, alice, true); !errors.Is(err, repositories.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for self friendship, got: %v", err)
	}
}

func TestEngine_SetVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1, p2, p3 := f.person(t, "p1"), f.person(t, "p2"), f.person(t, "p3")
	film := f.film(t, "Solaris")
	review := f.review(t, film, p1)

	sum := func() int {
		t.Helper()
		sums, err := f.store.Relations().SumByRight(ctx, entities.KindReviewVote, []int64{review})
		if err != nil {
			t.Fatalf("SumByRight failed: %v", err)
		}
		return sums[review]
	}

	for _, v := range []struct {
		person   int64
		polarity entities.Polarity
	}{
		{p1, entities.VoteLike},
		{p2, entities.VoteLike},
		{p3, entities.VoteLike},
		{p3, entities.VoteDislike},
	} {
		if err := f.engine.SetVote(ctx, v.person, review, v.polarity); err != nil {
			t.Fatalf("SetVote failed: %v", err)
		}
	}

	votes, _ := f.store.Relations().EdgesFrom(ctx, entities.KindReviewVote, p3)
	if len(votes) != 1 || votes[0].Payload != -1 {
		t.Fatalf("Expected exactly one dislike from p3, got %v", votes)
	}
	if got := sum(); got != 1 {
		t.Errorf("Expected usefulness 1, got %d", got)
	}

	if err := f.engine.SetVote(ctx, p3, review, entities.VoteNone); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}
	if got := sum(); got != 2 {
		t.Errorf("Expected usefulness 2 after removing the dislike, got %d", got)
	}

	if err := f.engine.SetVote(ctx, p3, review, entities.VoteNone); err != nil {
		t.Errorf("Expected clearing an absent vote to succeed, got: %v", err)
	}
	if err := f.engine.SetVote(ctx, p3, review, entities.Polarity(5)); !errors.Is(err, repositories.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for bad polarity, got: %v", err)
	}
}

func TestEngine_FeedAndPublishing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	film := f.film(t, "Heat")

	if _, err := f.engine.SetLike(ctx, alice, film, true); err != nil {
		t.Fatalf("SetLike failed: %v", err)
	}
	if _, err := f.engine.SetLike(ctx, alice, film, true); err != nil {
		t.Fatalf("SetLike failed: %v", err)
	}
	if _, err := f.engine.SetLike(ctx, alice, film, false); err != nil {
		t.Fatalf("SetLike failed: %v", err)
	}

	feed, err := f.store.Feed().ListByPerson(ctx, alice)
	if err != nil {
		t.Fatalf("ListByPerson failed: %v", err)
	}
	var got []entities.Operation
	for _, ev := range feed {
		if ev.EventType != entities.EventLike || ev.EntityID != film {
			t.Errorf("unexpected feed event %+v", ev)
		}
		got = append(got, ev.Operation)
	}
	if diff := cmp.Diff([]entities.Operation{entities.OpAdd, entities.OpRemove}, got); diff != "" {
		t.Errorf("feed operations mismatch (-want +got):\n%s", diff)
	}
	if len(f.pub.events) != 2 {
		t.Errorf("Expected 2 published events, got %d", len(f.pub.events))
	}
}

func TestEngine_PublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	ctx := context.Background()

	alice := f.person(t, "alice")
	bob := f.person(t, "bob")

	changed, err := f.engine.SetFriendship(ctx, alice, bob, true)
	if err != nil || !changed {
		t.Fatalf("Expected committed friendship despite publish failure, got changed=%v err=%v", changed, err)
	}
}

func TestEngine_FailedUnitPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.person(t, "alice")

	boom := errors.New("boom")
	err := f.engine.Run(ctx, func(ctx context.Context, u *Unit) error {
		if err := u.Record(ctx, alice, entities.EventReview, entities.OpAdd, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected unit error, got: %v", err)
	}
	if len(f.pub.events) != 0 {
		t.Errorf("Expected no published events, got %d", len(f.pub.events))
	}
	feed, _ := f.store.Feed().ListByPerson(ctx, alice)
	if len(feed) != 0 {
		t.Errorf("Expected feed append to roll back, got %d events", len(feed))
	}
}

func TestEngine_ConcurrentLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	film := f.film(t, "Heat")

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := f.engine.SetLike(ctx, alice, film, true)
			if err != nil {
				t.Errorf("SetLike failed: %v", err)
				return
			}
			if changed {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("Expected exactly one insertion, got %d", inserted)
	}
	counts, _ := f.store.Relations().CountByRight(ctx, entities.KindLike, []int64{film})
	if counts[film] != 1 {
		t.Errorf("Expected like count 1, got %d", counts[film])
	}
}

func TestEngine_SetEdgeRequiresBothEnds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.person(t, "alice")
	film := f.film(t, "Heat")
	review := f.review(t, film, alice)

	tests := []struct {
		name string
		call func() error
	}{
		{"like of unknown film", func() error { _, err := f.engine.SetLike(ctx, alice, 404, true); return err }},
		{"like by unknown person", func() error { _, err := f.engine.SetLike(ctx, 404, film, true); return err }},
		{"friendship with unknown person", func() error { _, err := f.engine.SetFriendship(ctx, alice, 404, true); return err }},
		{"vote by unknown person", func() error { return f.engine.SetVote(ctx, 404, review, entities.VoteLike) }},
		{"vote on unknown review", func() error { return f.engine.SetVote(ctx, alice, 404, entities.VoteLike) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, repositories.ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got: %v", err)
			}
		})
	}

	for _, kind := range []entities.RelationKind{entities.KindLike, entities.KindFriendship, entities.KindReviewVote} {
		edges, _ := f.store.Relations().EdgesTo(ctx, kind, 404)
		if len(edges) != 0 {
			t.Errorf("Expected no %s edges to a missing entity, got %v", kind, edges)
		}
	}
}

func TestEngine_ConcurrentLikesAndFilmDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	film := f.film(t, "Heat")
	people := make([]int64, 16)
	for i := range people {
		people[i] = f.person(t, fmt.Sprintf("p%d", i))
	}

	var wg sync.WaitGroup
	for i, person := range people {
		wg.Add(1)
		go func(person int64) {
			defer wg.Done()
			_, err := f.engine.SetLike(ctx, person, film, true)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				t.Errorf("SetLike failed: %v", err)
			}
		}(person)
		if i == len(people)/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f.engine.CascadeDelete(ctx, entities.EntityFilm, film); err != nil {
					t.Errorf("CascadeDelete failed: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	likes, err := f.store.Relations().EdgesTo(ctx, entities.KindLike, film)
	if err != nil {
		t.Fatalf("EdgesTo failed: %v", err)
	}
	if len(likes) != 0 {
		t.Errorf("Expected no likes of the deleted film, got %d", len(likes))
	}
}

func TestEngine_ConcurrentReconcileAndTagDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	genre := f.tag(t, entities.TagGenre, "Noir")
	keep := f.tag(t, entities.TagGenre, "Drama")
	films := make([]int64, 16)
	for i := range films {
		films[i] = f.film(t, fmt.Sprintf("f%d", i))
	}

	var wg sync.WaitGroup
	for i, film := range films {
		wg.Add(1)
		go func(film int64) {
			defer wg.Done()
			_, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{keep, genre})
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				t.Errorf("ReconcileAssociations failed: %v", err)
			}
		}(film)
		if i == len(films)/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f.engine.CascadeDelete(ctx, entities.EntityGenre, genre); err != nil {
					t.Errorf("CascadeDelete failed: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	dangling, err := f.store.Relations().EdgesTo(ctx, entities.KindGenre, genre)
	if err != nil {
		t.Fatalf("EdgesTo failed: %v", err)
	}
	if len(dangling) != 0 {
		t.Errorf("Expected no edges to the deleted genre, got %d", len(dangling))
	}

	// Films reconciled before the delete keep Drama; later reconciles fail whole
	for _, film := range films {
		got := f.rightIDs(t, entities.KindGenre, film)
		if len(got) != 0 && !cmp.Equal(got, []int64{keep}) {
			t.Errorf("film %d: unexpected genres %v", film, got)
		}
	}
}

func TestEngine_Observer(t *testing.T) {
	f := newFixture(t)
	obs := &countingObserver{}
	f.engine.SetObserver(obs)
	ctx := context.Background()

	film := f.film(t, "Heat")
	g1 := f.tag(t, entities.TagGenre, "Crime")
	g2 := f.tag(t, entities.TagGenre, "Drama")

	if _, err := f.engine.ReconcileAssociations(ctx, film, entities.KindGenre, []int64{g1, g2}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if err := f.engine.CascadeDelete(ctx, entities.EntityFilm, film); err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	want := map[string]int{"genre/add": 2, "genre/remove": 2}
	if diff := cmp.Diff(want, obs.calls); diff != "" {
		t.Errorf("observer mismatch (-want +got):\n%s", diff)
	}
}
