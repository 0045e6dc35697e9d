package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialgraph/internal/config"
	"socialgraph/internal/store/sqlstore"
	"socialgraph/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		Env:          "test",
		StoreBackend: config.BackendSQLite,
		RateLimitMax: 100000,
	}
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) (*Server, *fiber.App) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	s := NewServerWithDeps(cfg, testutil.NewStore(t), nil)
	return s, s.App()
}

// call issues a request with an optional JSON body and returns the status
// and raw response body.
func call(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestLivenessCheck(t *testing.T) {
	_, app := newTestApp(t)
	status, body := call(t, app, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"up"`)
}

func TestReadinessCheck_StoreHealthyRedisDisabled(t *testing.T) {
	_, app := newTestApp(t)
	status, body := call(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)

	got := decode[map[string]any](t, body)
	assert.Equal(t, "healthy", got["status"])
	checks := got["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["store"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestReadinessCheck_StoreDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	s := NewServerWithDeps(testConfig(), sqlstore.New(gormDB), nil)
	status, body := call(t, s.App(), http.MethodGet, "/health/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), `"store":"unhealthy"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadinessCheck_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewServerWithDeps(testConfig(), testutil.NewStore(t), rdb)
	app := s.App()

	status, _ := call(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)

	mr.Close()
	status, body := call(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), `"redis":"unhealthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	_, app := newTestApp(t)
	call(t, app, http.MethodGet, "/health/live", nil)
	status, body := call(t, app, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestGetFeatureFlags(t *testing.T) {
	_, app := newTestApp(t, func(c *config.Config) { c.FeatureFlags = "event_feed=on,resolve_expansion=0%" })
	status, body := call(t, app, http.MethodGet, "/api/admin/feature-flags", nil)
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, body)
	assert.Equal(t, "on", got.Raw["event_feed"])
	assert.True(t, got.Evaluated["event_feed"])
	assert.False(t, got.Evaluated["resolve_expansion"])
}

func TestCascadeTransactionsFlag(t *testing.T) {
	s, _ := newTestApp(t)
	assert.False(t, s.graph.Transactional())

	s, _ = newTestApp(t, func(c *config.Config) { c.FeatureFlags = "cascade_transactions=on" })
	assert.True(t, s.graph.Transactional())

	s, _ = newTestApp(t, func(c *config.Config) { c.CascadeTransactions = true })
	assert.True(t, s.graph.Transactional())
}

func TestEventFeedGating(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		_, app := newTestApp(t)
		status, _ := call(t, app, http.MethodGet, "/api/ws/events", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("flag off", func(t *testing.T) {
		_, app := newTestApp(t, func(c *config.Config) { c.FeatureFlags = "event_feed=off" })
		status, _ := call(t, app, http.MethodGet, "/api/ws/events", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("not an upgrade", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		s := NewServerWithDeps(testConfig(), testutil.NewStore(t), rdb)

		status, _ := call(t, s.App(), http.MethodGet, "/api/ws/events", nil)
		assert.Equal(t, http.StatusUpgradeRequired, status)
	})
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "user ID", humanizeParam("userId"))
	assert.Equal(t, "liked post ID", humanizeParam("likedPostId"))
	assert.Equal(t, "kind", humanizeParam("kind"))
}
