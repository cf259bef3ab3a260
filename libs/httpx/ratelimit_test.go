package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return rl.Middleware()(ok)
}

func hit(h http.Handler, client string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", client)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	h := limitedHandler(NewRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		if code := hit(h, "10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := hit(h, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", code)
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, time.Minute))

	if code := hit(h, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first client status = %d, want 200", code)
	}
	if code := hit(h, "10.0.0.2"); code != http.StatusOK {
		t.Fatalf("second client status = %d, want 200", code)
	}
	if code := hit(h, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second hit status = %d, want 429", code)
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 20*time.Millisecond))

	if code := hit(h, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if code := hit(h, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 inside the window", code)
	}
	time.Sleep(30 * time.Millisecond)
	if code := hit(h, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after the window reset", code)
	}
}
