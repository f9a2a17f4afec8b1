package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// createRouter mirrors the production order: request id, idempotency, then
// the limiter in front of POST /students. stored lists keys that already
// completed a create.
func createRouter(rl *RateLimiter, stored ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	done := map[string]bool{}
	for _, k := range stored {
		done[k] = true
	}
	lookup := func(_ context.Context, key string, _ time.Time) (bool, error) {
		return done[key], nil
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.Use(rl.Handler())
	r.POST("/students", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"message": "student created"})
	})
	r.GET("/students", func(c *gin.Context) { c.JSON(http.StatusOK, []any{}) })
	return r
}

func postStudent(r http.Handler, ip, idemKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"controlId":"C100"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = ip + ":40000"
	if idemKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idemKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_CreateStudent_PerClientIP(t *testing.T) {
	r := createRouter(NewRateLimiter(0.001, 2, KeyByClientIP()))

	for i := 0; i < 2; i++ {
		if w := postStudent(r, "198.51.100.7", ""); w.Code != http.StatusCreated {
			t.Fatalf("create %d within burst: %d", i+1, w.Code)
		}
	}

	w := postStudent(r, "198.51.100.7", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third create should be limited, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After=%q", w.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "rate_limited" || body["request_id"] == "" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("envelope=%v rid header=%q", body, w.Header().Get(requestIDHeader))
	}

	if w := postStudent(r, "203.0.113.20", ""); w.Code != http.StatusCreated {
		t.Fatalf("another client has its own bucket, got %d", w.Code)
	}
}

func TestRateLimiter_ReplayedCreateBypassesLimit(t *testing.T) {
	r := createRouter(NewRateLimiter(0.001, 1, KeyByClientIP()), "retry-7")
	const ip = "198.51.100.9"

	if w := postStudent(r, ip, "fresh-1"); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	if w := postStudent(r, ip, "fresh-2"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("unknown key still consumes a token, got %d", w.Code)
	}

	for i := 0; i < 3; i++ {
		if w := postStudent(r, ip, "retry-7"); w.Code != http.StatusCreated {
			t.Fatalf("replay %d should bypass the limiter, got %d", i+1, w.Code)
		}
	}

	// Replays are only recognised on POST.
	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.RemoteAddr = ip + ":40000"
	req.Header.Set(HeaderIdempotencyKey, "retry-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("GET with a stored key must not bypass, got %d", w.Code)
	}
}

func TestKeyByClientIP_HonorsTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if err := r.SetTrustedProxies([]string{"10.0.0.0/8"}); err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
	var got string
	r.GET("/students", func(c *gin.Context) { got = KeyByClientIP()(c) })

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "192.0.2.44")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "ip:192.0.2.44" {
		t.Fatalf("key=%q", got)
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(5, 0, KeyByClientIP())
	if rl.burst != 1 {
		t.Fatalf("burst=%d, want coerced to 1", rl.burst)
	}
	rl.ttl = time.Minute

	rl.mu.Lock()
	rl.visitors["ip:192.0.2.1"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-2 * time.Minute)}
	rl.visitors["ip:192.0.2.2"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now()}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	first := rl.getVisitor("ip:192.0.2.3")
	if again := rl.getVisitor("ip:192.0.2.3"); again != first {
		t.Fatalf("bucket not reused")
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["ip:192.0.2.1"]; ok {
		t.Fatalf("idle bucket survived cleanup")
	}
	if _, ok := rl.visitors["ip:192.0.2.2"]; !ok {
		t.Fatalf("active bucket was evicted")
	}
}
