package cache

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// recordingEvicter remembers every evicted key
type recordingEvicter struct {
	keys []string
}

func (e *recordingEvicter) Evict(ctx context.Context, keys ...string) error {
	e.keys = append(e.keys, keys...)
	return nil
}

func newTestInvalidator(t *testing.T) (*Invalidator, *recordingEvicter) {
	t.Helper()
	evicter := &recordingEvicter{}
	return NewInvalidator(nil, "", evicter, zerolog.Nop()), evicter
}

func payload(t *testing.T, origin string, keys ...string) string {
	t.Helper()
	data, err := json.Marshal(&message{Origin: origin, Keys: keys})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(data)
}

func TestInvalidator_Apply(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		payload     func(inv *Invalidator) string
		wantEvicted []string
	}{
		{
			name:        "remote invalidation evicts",
			payload:     func(inv *Invalidator) string { return payload(t, "other-host", "film:1", "person:2") },
			wantEvicted: []string{"film:1", "person:2"},
		},
		{
			name:    "own invalidation is ignored",
			payload: func(inv *Invalidator) string { return payload(t, inv.origin, "film:1") },
		},
		{
			name:    "malformed payload is ignored",
			payload: func(inv *Invalidator) string { return "{not json" },
		},
		{
			name:    "empty key list is ignored",
			payload: func(inv *Invalidator) string { return payload(t, "other-host") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, evicter := newTestInvalidator(t)

			inv.apply(ctx, tt.payload(inv))

			if diff := cmp.Diff(tt.wantEvicted, evicter.keys); diff != "" {
				t.Errorf("evicted keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidator_BroadcastNothing(t *testing.T) {
	inv, _ := newTestInvalidator(t)
	// no keys means no database round trip
	if err := inv.Broadcast(context.Background(), nil); err != nil {
		t.Errorf("expected nil error for empty broadcast, got: %v", err)
	}
}

func TestInvalidator_StopTwice(t *testing.T) {
	inv, _ := newTestInvalidator(t)
	if err := inv.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := inv.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}
