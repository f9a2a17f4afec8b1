package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersInflightAndUnmatchedLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/students/:controlId", func(c *gin.Context) {
		c.String(http.StatusOK, "hello")
	})
	r.DELETE("/students/:controlId", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Baselines isolate this test from other counters in the registry.
	baseGet := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/students/:controlId", "200"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/students/:controlId", "204"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/students/C100", http.StatusOK},
		{http.MethodGet, "/students/C200", http.StatusOK},
		{http.MethodDelete, "/students/C100", http.StatusNoContent},
		{http.MethodGet, "/does-not-exist", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/students/:controlId", "200")); got != baseGet+2 {
		t.Fatalf("GET counter = %v; want %v", got, baseGet+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/students/:controlId", "204")); got != baseDel+1 {
		t.Fatalf("DELETE counter = %v; want %v", got, baseDel+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != base404+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, base404+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
