package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

func keyEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ := BrowserKeyFromContext(r.Context())
		_, _ = w.Write([]byte(key))
	})
}

func TestBrowserKey_IssuesCookie(t *testing.T) {
	h := BrowserKey("marks_sid", true, logger.New("error", false))(keyEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "marks_sid", c.Name)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, c.Value, rec.Body.String())
	_, err := uuid.Parse(c.Value)
	require.NoError(t, err)
}

func TestBrowserKey_ReusesValidCookie(t *testing.T) {
	h := BrowserKey("marks_sid", false, logger.New("error", false))(keyEcho())
	key := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "marks_sid", Value: key})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Empty(t, rec.Result().Cookies())
	require.Equal(t, key, rec.Body.String())
}

func TestBrowserKey_ReplacesMalformedCookie(t *testing.T) {
	h := BrowserKey("marks_sid", false, logger.New("error", false))(keyEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "marks_sid", Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Len(t, rec.Result().Cookies(), 1)
	require.NotEqual(t, "not-a-uuid", rec.Body.String())
}

func TestLog_StatusWriterSupportsStreaming(t *testing.T) {
	h := Log(logger.New("error", false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		_, _ = w.Write([]byte("data: x\n\n"))
		require.NoError(t, rc.Flush())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.True(t, rec.Flushed)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{"passthrough when empty", nil, "anything.test", http.StatusOK},
		{"exact match", []string{"marks.example.test"}, "marks.example.test", http.StatusOK},
		{"wildcard match", []string{"*.example.test"}, "marks.example.test", http.StatusOK},
		{"port ignored by bare pattern", []string{"marks.example.test"}, "marks.example.test:8080", http.StatusOK},
		{"case insensitive", []string{"Marks.Example.Test"}, "MARKS.example.test", http.StatusOK},
		{"port must match when given", []string{"localhost:8080"}, "localhost:9090", http.StatusForbidden},
		{"wildcard excludes apex", []string{"*.example.test"}, "example.test", http.StatusForbidden},
		{"rejected", []string{"marks.example.test"}, "evil.test", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.allowed, logger.New("error", false))(keyEcho())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.New("error", false))(keyEcho())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 192.0.2.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerMin: 1}, logger.New("error", false))(keyEcho())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bookmarks", nil)
		req.RemoteAddr = "198.51.100.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			require.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerMin: 60, IdleTTL: time.Minute}, now)

	ok, _, _ := l.take("a", now)
	require.True(t, ok)
	ok, _, retry := l.take("a", now)
	require.False(t, ok)
	require.Equal(t, 1, retry)

	ok, _, _ = l.take("a", now.Add(time.Second))
	require.True(t, ok)

	l.take("b", now.Add(2*time.Minute))
	require.Len(t, l.buckets, 1)
	require.Contains(t, l.buckets, "b")
}
