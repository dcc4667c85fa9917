package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if wait := window.RetryAfter(now.Add(1 * time.Second)); wait != time.Second {
		t.Fatalf("expected 1s retry, got %s", wait)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	if wait := window.RetryAfter(now.Add(3 * time.Second)); wait != 0 {
		t.Fatalf("expected no wait, got %s", wait)
	}
}

func TestSlidingWindowTryAddHoldsLimitUnderContention(t *testing.T) {
	window := NewSlidingWindow(time.Minute)
	now := time.Now()

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := window.TryAdd(now, 5); ok {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Fatalf("expected 5 admitted, got %d", allowed)
	}
	ok, wait := window.TryAdd(now.Add(10*time.Second), 5)
	if ok || wait != 50*time.Second {
		t.Fatalf("expected rejection with 50s wait, got %v %s", ok, wait)
	}
}
