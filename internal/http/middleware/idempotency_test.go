package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// seen records what the create handler observed for one request.
type seen struct {
	key    string
	hasKey bool
	replay bool
	bypass bool
}

// completedCreates answers lookups from a fixed set of finished keys and
// counts the calls.
type completedCreates struct {
	keys  map[string]bool
	err   error
	calls int
}

func (cc *completedCreates) lookup(_ context.Context, key string, now time.Time) (bool, error) {
	cc.calls++
	if now.IsZero() {
		return false, errors.New("no timestamp")
	}
	return cc.keys[key], cc.err
}

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, got *seen) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(opts, lookup))
	record := func(c *gin.Context) {
		got.key, got.hasKey = GetIdempotencyKey(c)
		got.replay, got.bypass = IsReplay(c), IsRateBypass(c)
		c.Status(http.StatusNoContent)
	}
	r.POST("/students", record)
	r.GET("/students", record)
	return r
}

func send(r http.Handler, method, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/students", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_CreateStates(t *testing.T) {
	cases := []struct {
		name      string
		method    string
		key       string
		want      seen
		wantCalls int
	}{
		{"no header", http.MethodPost, "", seen{}, 0},
		{"fresh key", http.MethodPost, "create-c100", seen{key: "create-c100", hasKey: true}, 1},
		{"completed key", http.MethodPost, "done-a1", seen{key: "done-a1", hasKey: true, replay: true, bypass: true}, 1},
		{"list ignores store", http.MethodGet, "done-a1", seen{key: "done-a1", hasKey: true}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &completedCreates{keys: map[string]bool{"done-a1": true}}
			var got seen
			w := send(idemRouter(IdempotencyOptions{}, store.lookup, &got), tc.method, tc.key)

			if w.Code != http.StatusNoContent {
				t.Fatalf("status=%d", w.Code)
			}
			if got != tc.want || store.calls != tc.wantCalls {
				t.Fatalf("seen=%+v calls=%d; want %+v calls=%d", got, store.calls, tc.want, tc.wantCalls)
			}
		})
	}
}

func TestIdempotencyValidator_LookupErrorIsAMiss(t *testing.T) {
	store := &completedCreates{err: errors.New("database is locked")}
	var got seen
	send(idemRouter(IdempotencyOptions{}, store.lookup, &got), http.MethodPost, "create-b2")
	if got.replay || got.bypass || !got.hasKey {
		t.Fatalf("seen=%+v", got)
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"space", IdempotencyOptions{}, "create c100"},
		{"slash", IdempotencyOptions{}, "students/C100"},
		{"over default length", IdempotencyOptions{}, strings.Repeat("k", 201)},
		{"over custom length", IdempotencyOptions{MaxLen: 8}, "create-c100"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9a-f-]{36}$`)}, "create-c100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &completedCreates{}
			var got seen
			w := send(idemRouter(tc.opts, store.lookup, &got), http.MethodPost, tc.key)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != "bad_idempotency_key" || body["request_id"] != w.Header().Get(requestIDHeader) {
				t.Fatalf("envelope=%v", body)
			}
			if store.calls != 0 || got.hasKey {
				t.Fatalf("rejected key reached the store or handler")
			}
		})
	}

	var got seen
	if w := send(idemRouter(IdempotencyOptions{}, nil, &got), http.MethodPost, strings.Repeat("k", 200)); w.Code != http.StatusNoContent {
		t.Fatalf("200-char key should pass, got %d", w.Code)
	}
}
