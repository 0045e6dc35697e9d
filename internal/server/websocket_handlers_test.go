package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"socialgraph/internal/service"
	"socialgraph/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	fws "github.com/fasthttp/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsHandlerStreamsMutations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewServerWithDeps(testConfig(), testutil.NewStore(t), rdb)
	app := s.App()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.hub.StartWiring(ctx, s.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, resp, err := fws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws/events", nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	u, err := s.graph.Users.CreateUser(ctx, service.CreateUserInput{Name: "ada", Password: "pw", Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, fws.TextMessage, msgType)
	assert.Contains(t, string(payload), `"operation":"createUser"`)
	assert.Contains(t, string(payload), u.ID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestReadinessReportsEventFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewServerWithDeps(testConfig(), testutil.NewStore(t), rdb)
	app := s.App()

	status, body := call(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	got := decode[map[string]any](t, body)
	assert.Equal(t, "degraded", got["status"])
	assert.Equal(t, "connecting", got["checks"].(map[string]any)["event_feed"])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.hub.RunWiring(ctx, s.notifier, nil))

	status, body = call(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	got = decode[map[string]any](t, body)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, "healthy", got["checks"].(map[string]any)["event_feed"])
}
