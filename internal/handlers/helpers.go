package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// === Request decoding ===

// request reads typed fields from a structpb request body
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(in *structpb.Struct) request {
	return request{fields: in.GetFields()}
}

func (r request) has(name string) bool {
	v, ok := r.fields[name]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (r request) number(name string) (int64, error) {
	n, ok := r.fields[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int64(n.NumberValue), nil
}

// id reads a required positive identifier
func (r request) id(name string) (int64, error) {
	if !r.has(name) {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := r.number(name)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return id, nil
}

// optionalInt reads an integer, returning def when the field is absent
func (r request) optionalInt(name string, def int64) (int64, error) {
	if !r.has(name) {
		return def, nil
	}
	return r.number(name)
}

func (r request) str(name string) string {
	return r.fields[name].GetStringValue()
}

func (r request) boolean(name string, def bool) (bool, error) {
	if !r.has(name) {
		return def, nil
	}
	b, ok := r.fields[name].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return b.BoolValue, nil
}

func (r request) ids(name string) ([]int64, error) {
	if !r.has(name) {
		return nil, nil
	}
	list := r.fields[name].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%s must be a list", name)
	}
	ids := make([]int64, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue <= 0 {
			return nil, fmt.Errorf("%s[%d] must be a positive integer", name, i)
		}
		ids = append(ids, int64(n.NumberValue))
	}
	return ids, nil
}

func (r request) date(name string) (time.Time, error) {
	if !r.has(name) || r.str(name) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, r.str(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a %s date: %v", name, dateLayout, err)
	}
	return t, nil
}

// === Request to entity conversion ===

func requestToPerson(r request) (*entities.Person, error) {
	birthday, err := r.date("birthday")
	if err != nil {
		return nil, err
	}
	return &entities.Person{
		Email:    r.str("email"),
		Login:    r.str("login"),
		Name:     r.str("name"),
		Birthday: birthday,
	}, nil
}

func requestToFilm(r request) (*entities.Film, error) {
	releaseDate, err := r.date("release_date")
	if err != nil {
		return nil, err
	}
	duration, err := r.optionalInt("duration", 0)
	if err != nil {
		return nil, err
	}
	classification, err := r.optionalInt("classification_id", 0)
	if err != nil {
		return nil, err
	}
	genres, err := r.ids("genre_ids")
	if err != nil {
		return nil, err
	}
	directors, err := r.ids("director_ids")
	if err != nil {
		return nil, err
	}
	return &entities.Film{
		Title:            r.str("title"),
		Description:      r.str("description"),
		ReleaseDate:      releaseDate,
		DurationMinutes:  int(duration),
		ClassificationID: classification,
		GenreIDs:         genres,
		DirectorIDs:      directors,
	}, nil
}

func parseSearchTargets(by string) (title, director bool, err error) {
	if by == "" {
		return true, false, nil
	}
	for _, target := range strings.Split(by, ",") {
		switch strings.TrimSpace(strings.ToLower(target)) {
		case "title":
			title = true
		case "director":
			director = true
		default:
			return false, false, fmt.Errorf("unknown search target %q", target)
		}
	}
	return title, director, nil
}

// === Entity to response conversion ===

func idList(ids []int64) []any {
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}
	return list
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func personToMap(p *entities.Person) map[string]any {
	return map[string]any{
		"id":       p.ID,
		"email":    p.Email,
		"login":    p.Login,
		"name":     p.DisplayName(),
		"birthday": formatDate(p.Birthday),
	}
}

func filmToMap(f *entities.Film) map[string]any {
	m := map[string]any{
		"id":           f.ID,
		"title":        f.Title,
		"description":  f.Description,
		"release_date": formatDate(f.ReleaseDate),
		"duration":     f.DurationMinutes,
		"genre_ids":    idList(f.GenreIDs),
		"director_ids": idList(f.DirectorIDs),
	}
	if f.ClassificationID != 0 {
		m["classification_id"] = f.ClassificationID
	}
	return m
}

func rankToMap(r *aggregation.FilmRank) map[string]any {
	m := filmToMap(r.Film)
	m["likes"] = r.Likes
	return m
}

func tagToMap(t *entities.Tag) map[string]any {
	return map[string]any{
		"kind":        string(t.Kind),
		"id":          t.ID,
		"name":        t.Name,
		"description": t.Description,
	}
}

func reviewToMap(r *entities.Review) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"film_id":     r.FilmID,
		"person_id":   r.PersonID,
		"content":     r.Content,
		"is_positive": r.IsPositive,
		"useful":      r.Useful,
	}
}

func eventToMap(e *entities.FeedEvent) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"person_id":  e.PersonID,
		"event_type": string(e.EventType),
		"operation":  string(e.Operation),
		"entity_id":  e.EntityID,
	}
}

func listOf[T any](items []T, convert func(T) map[string]any) []any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, convert(item))
	}
	return list
}

func response(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// === Error mapping ===

func invalidArgument(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

// toStatus maps service errors onto gRPC status codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repositories.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}
