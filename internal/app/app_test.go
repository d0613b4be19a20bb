package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terptracker/internal/cache"
	"terptracker/pkg/utils"
)

func testConfig() utils.Config {
	return utils.Config{
		DBPath:             ":memory:",
		AliasMapPath:       "",
		Debug:              false,
		CannlyticsBaseURL:  "https://cannlytics.invalid/api",
		KushyBaseURL:       "https://kushy.invalid/strains",
		RateLimitPerMinute: 100,
		CacheTTL:           time.Minute,
		CORSOrigins:        []string{"http://localhost:3000"},
	}
}

func TestNew_InProcessCache(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &cache.Memory{}, a.Cache)
	assert.IsType(t, &cache.MemoryLimiter{}, a.Limiter)
	assert.NotNil(t, a.Analyzer)
}

func TestNew_UnreachableRedisFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	a, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &cache.Memory{}, a.Cache)
}

func TestRouter(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	r := a.Router()

	for _, tc := range []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/api/version", http.StatusOK},
		{"/api/terpenes/myrcene", http.StatusOK},
		{"/api/strains/search?q=blue", http.StatusOK},
		{"/metrics", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.code, w.Code, tc.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/terpenes", nil))
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
