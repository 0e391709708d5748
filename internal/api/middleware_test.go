package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitKeysOnPeerNotForwardedFor(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PeerAddrMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RateLimitMiddleware(2, time.Minute))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	do := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.2"), "a new forwarded address does not get a new bucket")
}

func TestIPLimiterDropsIdleBuckets(t *testing.T) {
	l := newIPLimiter(2, time.Minute)
	now := time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("198.51.100.1"))
	assert.True(t, l.allow("198.51.100.2"))
	assert.Len(t, l.limiters, 2)

	now = now.Add(4 * time.Minute)
	assert.True(t, l.allow("198.51.100.3"))
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "198.51.100.3")
}
