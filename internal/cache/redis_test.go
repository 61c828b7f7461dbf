package cache

import (
	"context"
	"testing"

	"github.com/serialguard/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("expected cache disabled")
	}
	if err := Ping(context.Background()); err != nil {
		t.Fatalf("ping on disabled cache should be nil, got %v", err)
	}
}

func TestUseMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := Use(redis.NewClient(&redis.Options{Addr: mr.Addr()}), " test "); err != nil {
		t.Fatalf("use client failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	if !Enabled() {
		t.Fatalf("expected cache enabled")
	}
	if err := Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if got := Key("ratelimit", " join ", "", "1.2.3.4"); got != "test:ratelimit:join:1.2.3.4" {
		t.Fatalf("unexpected key %q", got)
	}
}
