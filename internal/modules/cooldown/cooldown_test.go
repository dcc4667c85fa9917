package cooldown

import (
	"testing"
	"time"

	"sentinel-support/internal/config"
)

func TestLimiterWindow(t *testing.T) {
	limiter := New(config.CooldownConfig{Commands: 2, WindowSeconds: 10})
	key := Key("g1", "u1", "check")
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow(key, now); !ok {
			t.Fatalf("attempt %d should pass", i)
		}
	}
	ok, wait := limiter.Allow(key, now.Add(time.Second))
	if ok {
		t.Fatalf("third attempt should be throttled")
	}
	if wait != 9*time.Second {
		t.Fatalf("expected 9s wait, got %s", wait)
	}

	if ok, _ := limiter.Allow(Key("g1", "u2", "check"), now); !ok {
		t.Fatalf("other users have their own budget")
	}
	if ok, _ := limiter.Allow(key, now.Add(11*time.Second)); !ok {
		t.Fatalf("window should have expired")
	}

	if removed := limiter.Prune(now.Add(time.Minute)); removed != 2 {
		t.Fatalf("expected 2 pruned windows, got %d", removed)
	}
}

func TestLimiterDisabled(t *testing.T) {
	limiter := New(config.CooldownConfig{})
	for i := 0; i < 100; i++ {
		if ok, _ := limiter.Allow("k", time.Now()); !ok {
			t.Fatalf("disabled limiter should always allow")
		}
	}
}
