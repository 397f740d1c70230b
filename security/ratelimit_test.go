package security

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("203.0.113.1") {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	if rl.Allow("203.0.113.1") {
		t.Error("request over burst allowed")
	}
	if !rl.Allow("203.0.113.2") {
		t.Error("separate identifier throttled")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 10, Burst: 1})
	defer rl.Stop()

	now := time.Now()
	if !rl.allowAt("k", now) {
		t.Fatal("first request rejected")
	}
	if rl.allowAt("k", now) {
		t.Fatal("second immediate request allowed")
	}
	if !rl.allowAt("k", now.Add(150*time.Millisecond)) {
		t.Error("request after refill rejected")
	}
}

func TestRateLimiter_LRUEviction(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxEntries: 2})
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	rl.Allow("a") // a is now most recent
	rl.Allow("c") // evicts b

	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rl.Len())
	}
	if _, ok := rl.entries["b"]; ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok := rl.entries["a"]; !ok {
		t.Error("recently used entry was evicted")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute})
	defer rl.Stop()

	start := time.Now()
	rl.allowAt("old", start)
	rl.allowAt("fresh", start.Add(2*time.Minute))

	removed := rl.Cleanup(start.Add(2*time.Minute + time.Second))
	if removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if _, ok := rl.entries["fresh"]; !ok {
		t.Error("active entry was cleaned up")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
	defer rl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rl.Allow(fmt.Sprintf("client-%d", n%5))
			}
		}(i)
	}
	wg.Wait()

	if rl.Len() != 5 {
		t.Errorf("Len() = %d, want 5", rl.Len())
	}
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	defer rl.Stop()

	var limited []string
	handler := rl.Middleware(ClientIPFunc(false, 0), func(_ *http.Request, key string) {
		limited = append(limited, key)
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
		req.RemoteAddr = "198.51.100.4:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d, want 204", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if len(limited) != 1 || limited[0] != "198.51.100.4" {
		t.Errorf("onLimited calls = %v, want [198.51.100.4]", limited)
	}
}
