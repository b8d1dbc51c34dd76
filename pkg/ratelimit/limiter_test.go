package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/common"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(capacity int, perSecond float64, ttl time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(capacity, perSecond, ttl)
	l.now = c.now
	return l, c
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(5, 1, time.Hour)

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("a")
		assert.True(t, ok, "request %d", i+1)
	}
	ok, wait := l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	c.advance(2 * time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
}

func TestLimiter_RefillCapsAtCapacity(t *testing.T) {
	l, c := newTestLimiter(2, 10, time.Hour)
	l.Allow("a")
	c.advance(time.Minute)

	allowed := 0
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("a"); ok {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 0.1, time.Hour)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
	ok, _ = l.Allow("b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_Sweep(t *testing.T) {
	l, c := newTestLimiter(1, 1, time.Minute)
	l.Allow("old")
	c.advance(45 * time.Second)
	l.Allow("fresh")
	c.advance(30 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_RunStopsWithContext(t *testing.T) {
	l := NewLimiter(1, 1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMiddleware_RejectsWhenEmpty(t *testing.T) {
	l, _ := newTestLimiter(2, 0.5, time.Hour)
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send().Code)
	assert.Equal(t, http.StatusNoContent, send().Code)

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
}

func TestCallerKey(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", []byte("ratelimit-test-secret"), nil)
	_, signed, err := tokenAuth.Encode(map[string]interface{}{"sub": "alice"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request) *http.Request
		want    string
	}{
		{
			name: "remote addr",
			prepare: func(r *http.Request) *http.Request {
				r.RemoteAddr = "192.0.2.7:41000"
				return r
			},
			want: "ip:192.0.2.7",
		},
		{
			name: "forwarded for",
			prepare: func(r *http.Request) *http.Request {
				r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
				return r
			},
			want: "ip:203.0.113.9",
		},
		{
			name: "real ip",
			prepare: func(r *http.Request) *http.Request {
				r.Header.Set("X-Real-IP", "198.51.100.3")
				return r
			},
			want: "ip:198.51.100.3",
		},
		{
			name: "token subject",
			prepare: func(r *http.Request) *http.Request {
				tok, err := jwtauth.VerifyToken(tokenAuth, signed)
				require.NoError(t, err)
				return r.WithContext(jwtauth.NewContext(r.Context(), tok, nil))
			},
			want: "sub:alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.prepare(httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, CallerKey(req))
		})
	}
}
