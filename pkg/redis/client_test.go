package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sabrositas/pos-backend/pkg/config"
)

type fakeStore struct {
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
		delete(f.counts, key)
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
	client := &Client{store: newFakeStore()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, count, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("fourth request should be rejected, count=%d", count)
	}
}

func TestNextInvoiceSeqIncrementsPerBucket(t *testing.T) {
	client := &Client{store: newFakeStore()}
	ctx := context.Background()

	first, err := client.NextInvoiceSeq(ctx, "20260828120000")
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	second, err := client.NextInvoiceSeq(ctx, "20260828120000")
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected 1 then 2, got %d then %d", first, second)
	}

	other, err := client.NextInvoiceSeq(ctx, "20260828120001")
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	if other != 1 {
		t.Fatalf("new bucket should restart at 1, got %d", other)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	client := &Client{store: newFakeStore()}
	ctx := context.Background()

	if err := client.StoreRefreshToken(ctx, "user-1", "tok", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := client.GetRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "tok" {
		t.Fatalf("expected tok, got %q", got)
	}
	if err := client.RevokeRefreshToken(ctx, "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := client.GetRefreshToken(ctx, "user-1"); err == nil {
		t.Fatalf("expected redis.Nil after revoke")
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error when neither url nor address set")
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 5 {
		t.Fatalf("options not applied: %+v", opts)
	}
}
