package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockCmdable struct {
	mu          sync.Mutex
	values      map[string]string
	counters    map[string]int64
	expireCalls []string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		values:   map[string]string{},
		counters: map[string]int64{},
	}
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if v, ok := m.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := m.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	m.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(m.counters[key])
	return cmd
}

func (m *mockCmdable) Expire(ctx context.Context, key string, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireCalls = append(m.expireCalls, key)
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			removed++
		}
		delete(m.counters, key)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "found:tag-1", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("first hit should pass, allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire on first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "found:tag-1", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("second hit should pass, allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be reset on later increments")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "found:tag-1", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("third hit should be blocked")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.RateLimitKey("found:abc"); got != "pawtag:rate_limit:found:abc" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.AccessSessionKey("sess-1"); got != "pawtag:session:access:sess-1" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.ActivationCacheKey("7Hf92KxQz"); got != "pawtag:cache:activation:7Hf92KxQz" {
		t.Fatalf("unexpected activation cache key %s", got)
	}
	if got := client.DashboardCacheKey("owner-1"); got != "pawtag:cache:dashboard:owner-1" {
		t.Fatalf("unexpected dashboard cache key %s", got)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.AccessSessionKey("sess-1")
	if err := client.Set(ctx, key, "1", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != "1" {
		t.Fatalf("get returned %q, %v", got, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}
