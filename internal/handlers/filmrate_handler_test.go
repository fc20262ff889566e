package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/repositories/memory"
	"github.com/asakaida/filmrate/internal/services"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"github.com/asakaida/filmrate/internal/services/relations"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// newTestClient serves a handler over a memory store through bufconn
func newTestClient(t *testing.T) *FilmRateClient {
	t.Helper()

	store := memory.NewStore()
	engine := relations.NewEngine(store, nil, zerolog.Nop())
	aggregator := aggregation.NewAggregator(store)
	handler := NewFilmRateHandler(
		services.NewPersonService(store, engine),
		services.NewFilmService(store, engine),
		services.NewTagService(store, engine),
		services.NewReviewService(store, engine, aggregator),
		aggregator,
		10,
	)

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	RegisterFilmRateServer(server, handler)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewFilmRateClient(conn)
}

func call(t *testing.T, c *FilmRateClient, name string, fields map[string]any) *structpb.Struct {
	t.Helper()
	out, err := callErr(c, name, fields)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return out
}

func callErr(c *FilmRateClient, name string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return c.Call(context.Background(), name, in)
}

func idOf(s *structpb.Struct) int64 {
	return int64(s.GetFields()["id"].GetNumberValue())
}

func filmIDs(s *structpb.Struct) []int64 {
	ids := []int64{}
	for _, v := range s.GetFields()["films"].GetListValue().GetValues() {
		ids = append(ids, int64(v.GetStructValue().GetFields()["id"].GetNumberValue()))
	}
	return ids
}

func TestFilmRateHandler_CatalogAndPopular(t *testing.T) {
	c := newTestClient(t)

	drama := idOf(call(t, c, "CreateTag", map[string]any{"kind": "genre", "name": "Drama"}))
	p1 := idOf(call(t, c, "CreatePerson", map[string]any{"email": "p1@example.com", "login": "p1"}))
	p2 := idOf(call(t, c, "CreatePerson", map[string]any{"email": "p2@example.com", "login": "p2"}))

	var films []int64
	for i, title := range []string{"F1", "F2", "F3"} {
		fields := map[string]any{"title": title, "release_date": fmt.Sprintf("200%d-01-01", i)}
		if title == "F2" {
			fields["genre_ids"] = []any{drama}
		}
		films = append(films, idOf(call(t, c, "CreateFilm", fields)))
	}

	for _, like := range []struct{ person, film int64 }{
		{p1, films[0]}, {p1, films[1]}, {p2, films[1]}, {p2, films[2]},
	} {
		call(t, c, "SetLike", map[string]any{"person_id": like.person, "film_id": like.film})
	}

	got := call(t, c, "GetFilm", map[string]any{"id": films[1]})
	genres := got.GetFields()["genre_ids"].GetListValue().GetValues()
	if len(genres) != 1 || int64(genres[0].GetNumberValue()) != drama {
		t.Errorf("GetFilm genre_ids = %v, want [%d]", genres, drama)
	}

	tests := []struct {
		name   string
		method string
		fields map[string]any
		want   []int64
	}{
		{"popular default limit", "Popular", map[string]any{}, []int64{films[1], films[0], films[2]}},
		{"popular limit", "Popular", map[string]any{"limit": 1}, []int64{films[1]}},
		{"popular by genre", "Popular", map[string]any{"genre_id": drama}, []int64{films[1]}},
		{"popular by year", "Popular", map[string]any{"year": 2002}, []int64{films[2]}},
		{"common films", "CommonFilms", map[string]any{"person_id": p1, "other_id": p2}, []int64{films[1]}},
		{"search title", "Search", map[string]any{"query": "f", "by": "title"}, []int64{films[1], films[0], films[2]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := call(t, c, tt.method, tt.fields)
			if diff := cmp.Diff(tt.want, filmIDs(out)); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.method, diff)
			}
		})
	}
}

func TestFilmRateHandler_ReviewsAndFeed(t *testing.T) {
	c := newTestClient(t)

	film := idOf(call(t, c, "CreateFilm", map[string]any{"title": "Heat"}))
	var people []int64
	for _, login := range []string{"author", "v1", "v2", "v3"} {
		people = append(people, idOf(call(t, c, "CreatePerson", map[string]any{"email": login + "@example.com", "login": login})))
	}

	review := idOf(call(t, c, "CreateReview", map[string]any{
		"film_id": film, "person_id": people[0], "content": "Tense", "is_positive": true,
	}))
	for i, polarity := range []int{1, 1, -1} {
		call(t, c, "SetVote", map[string]any{"person_id": people[i+1], "review_id": review, "polarity": polarity})
	}

	useful := call(t, c, "Usefulness", map[string]any{"review_id": review})
	if got := useful.GetFields()["useful"].GetNumberValue(); got != 1 {
		t.Errorf("useful = %v, want 1", got)
	}

	out := call(t, c, "SetVote", map[string]any{"person_id": people[3], "review_id": review, "polarity": 0})
	if got := out.GetFields()["useful"].GetNumberValue(); got != 2 {
		t.Errorf("useful after withdrawing a dislike = %v, want 2", got)
	}

	top := call(t, c, "TopReviews", map[string]any{"film_id": film})
	if n := len(top.GetFields()["reviews"].GetListValue().GetValues()); n != 1 {
		t.Errorf("TopReviews returned %d reviews, want 1", n)
	}

	call(t, c, "DeleteEntity", map[string]any{"type": "review", "id": review})
	feed := call(t, c, "Feed", map[string]any{"person_id": people[0]})
	var ops []string
	for _, v := range feed.GetFields()["events"].GetListValue().GetValues() {
		ops = append(ops, v.GetStructValue().GetFields()["operation"].GetStringValue())
	}
	if diff := cmp.Diff([]string{"ADD", "REMOVE"}, ops); diff != "" {
		t.Errorf("feed mismatch (-want +got):\n%s", diff)
	}
}

func TestFilmRateHandler_ErrorCodes(t *testing.T) {
	c := newTestClient(t)
	person := idOf(call(t, c, "CreatePerson", map[string]any{"email": "a@example.com", "login": "a"}))

	tests := []struct {
		name   string
		method string
		fields map[string]any
		want   codes.Code
	}{
		{"missing id", "GetFilm", map[string]any{}, codes.InvalidArgument},
		{"fractional id", "GetFilm", map[string]any{"id": 1.5}, codes.InvalidArgument},
		{"unknown film", "GetFilm", map[string]any{"id": 99}, codes.NotFound},
		{"film without title", "CreateFilm", map[string]any{"title": ""}, codes.InvalidArgument},
		{"unknown genre on film", "CreateFilm", map[string]any{"title": "X", "genre_ids": []any{5}}, codes.NotFound},
		{"unknown tag kind", "CreateTag", map[string]any{"kind": "studio", "name": "A24"}, codes.InvalidArgument},
		{"self friendship", "SetFriendship", map[string]any{"person_id": person, "friend_id": person}, codes.InvalidArgument},
		{"unknown friend", "SetFriendship", map[string]any{"person_id": person, "friend_id": 42}, codes.NotFound},
		{"bad polarity", "SetVote", map[string]any{"person_id": person, "review_id": 1, "polarity": 2}, codes.InvalidArgument},
		{"zero popular limit", "Popular", map[string]any{"limit": 0}, codes.InvalidArgument},
		{"zero popular year", "Popular", map[string]any{"year": 0}, codes.InvalidArgument},
		{"unknown director", "FilmsByDirector", map[string]any{"director_id": 3}, codes.NotFound},
		{"unknown search target", "Search", map[string]any{"query": "x", "by": "actor"}, codes.InvalidArgument},
		{"unknown entity type", "DeleteEntity", map[string]any{"type": "studio", "id": 1}, codes.InvalidArgument},
		{"delete unknown person", "DeleteEntity", map[string]any{"type": "person", "id": 42}, codes.NotFound},
		{"common friends unknown other", "CommonFriends", map[string]any{"person_id": person, "other_id": 42}, codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callErr(c, tt.method, tt.fields)
			if got := status.Code(err); got != tt.want {
				t.Errorf("%s code = %v, want %v (err: %v)", tt.method, got, tt.want, err)
			}
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("film 3: %w", repositories.ErrNotFound), codes.NotFound},
		{"invalid", fmt.Errorf("%w: limit", repositories.ErrInvalidArgument), codes.InvalidArgument},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), codes.Canceled},
		{"storage", errors.New("connection reset"), codes.Internal},
		{"already a status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(toStatus(tt.err)); got != tt.want {
				t.Errorf("toStatus() code = %v, want %v", got, tt.want)
			}
		})
	}
}
