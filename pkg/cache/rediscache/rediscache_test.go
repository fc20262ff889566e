package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestCache_Key(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "default prefix", prefix: "", key: "film:1", want: "filmrate:film:1"},
		{name: "custom prefix", prefix: "test:", key: "person:7", want: "test:person:7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
			defer client.Close()

			c := NewWithClient(client, &Config{Prefix: tt.prefix})
			if got := c.Key(tt.key); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestCache_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(client, &Config{DefaultTTL: time.Minute})
	defer c.Close()

	if _, found := c.Get(context.Background(), "film:1"); found {
		t.Error("expected a miss when redis is unreachable")
	}
	if m := c.Metrics(); m.Misses != 1 || m.Hits != 0 {
		t.Errorf("expected 1 miss and 0 hits, got %+v", m)
	}
	if err := c.Set(context.Background(), "film:1", []byte("v"), 0); err == nil {
		t.Error("expected Set to fail when redis is unreachable")
	}
}

func TestCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}

	ctx := context.Background()
	c, err := New(ctx, &Config{Addr: addr, Prefix: "filmrate-test:", DefaultTTL: time.Minute})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()
	defer c.Clear(ctx)

	if err := c.Set(ctx, "film:1", []byte(`{"id":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found := c.Get(ctx, "film:1")
	if !found || string(value) != `{"id":1}` {
		t.Errorf("Get() = %q, %v; want cached value", value, found)
	}

	if err := c.Delete(ctx, "film:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get(ctx, "film:1"); found {
		t.Error("expected key to be deleted")
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, key, []byte(key), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get(ctx, "a"); found {
		t.Error("expected Clear to remove every key")
	}
}
