package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpile/backend/internal/telemetry"
)

type testEnv struct {
	server *WSServer
	hub    *telemetry.Hub
	http   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := telemetry.NewHub(4, quietLogger())
	srv := NewWSServer(Options{
		Telemetry:      hub,
		StreamInterval: 30 * time.Millisecond,
		Seed:           42,
		Logger:         quietLogger(),
	})
	router := gin.New()
	srv.RegisterRoutes(router)

	env := &testEnv{server: srv, hub: hub, http: httptest.NewServer(router)}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		env.http.Close()
	})
	return env
}

func (e *testEnv) getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

// readUntil читает сообщения, пока не встретит n сообщений типа msgType
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, n int) []map[string]interface{} {
	t.Helper()
	var found []map[string]interface{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(found) < n {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q, got %d of %d", msgType, len(found), n)
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == msgType {
			found = append(found, msg)
		}
	}
	return found
}

func TestHealthAndDenominations(t *testing.T) {
	env := newTestEnv(t)

	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, env.getJSON(t, "/api/health", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ready", health["assets"])

	var denoms DenominationsMessage
	assert.Equal(t, http.StatusOK, env.getJSON(t, "/api/denominations", &denoms))
	assert.Len(t, denoms.Items, 9)
}

func TestPlanEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var report PlanReport
	assert.Equal(t, http.StatusOK, env.getJSON(t, "/api/plan?amount=12345", &report))
	assert.Equal(t, int64(12345), report.Original)
	assert.Equal(t, int64(12345), report.RepresentedAmount)

	var bad map[string]interface{}
	assert.Equal(t, http.StatusBadRequest, env.getJSON(t, "/api/plan?amount=abc", &bad))
	assert.Equal(t, http.StatusBadRequest, env.getJSON(t, "/api/plan?amount=-5", &bad))
	assert.Equal(t, http.StatusBadRequest, env.getJSON(t, "/api/plan", &bad))
}

func TestSessionGreetsWithArenaAndStatus(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	defer conn.Close()

	info := readUntil(t, conn, MessageTypeInfo, 1)[0]
	session, _ := info["session"].(string)
	assert.NotEmpty(t, session)

	// статус идет последним в приветствии, после статиков и камеры
	status := readUntil(t, conn, MessageTypeStatus, 1)[0]
	assert.Equal(t, false, status["running"])
	assert.Equal(t, true, status["assets_ready"])

	assert.Eventually(t, func() bool {
		_, ok := env.server.Session(session)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionDropSpawnsPieces(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	defer conn.Close()

	session := readUntil(t, conn, MessageTypeInfo, 1)[0]["session"].(string)
	readUntil(t, conn, MessageTypeStatus, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "drop", "amount": 11111}))

	amount := readUntil(t, conn, MessageTypeAmount, 1)[0]
	assert.EqualValues(t, 11111, amount["value"])

	creates := readUntil(t, conn, MessageTypeCreate, 5)
	var total float64
	for _, c := range creates {
		assert.Contains(t, c["id"], "piece_")
		total += c["represents"].(float64)
	}
	assert.EqualValues(t, 11111, total)

	update := readUntil(t, conn, MessageTypeUpdate, 1)[0]
	assert.NotEmpty(t, update["updates"])

	tm, ok := env.hub.Get(session)
	require.True(t, ok)
	assert.Eventually(t, func() bool { return tm.Totals()["spawn"] == 5 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, tm.Totals()["drop"])

	var telemetryResp struct {
		Session string         `json:"session"`
		Totals  map[string]int `json:"totals"`
	}
	assert.Equal(t, http.StatusOK, env.getJSON(t, "/api/telemetry/"+session, &telemetryResp))
	assert.Equal(t, session, telemetryResp.Session)
	assert.Equal(t, 1, telemetryResp.Totals["drop"])

	var stats map[string]interface{}
	assert.Equal(t, http.StatusOK, env.getJSON(t, "/api/sessions/"+session+"/stats", &stats))
	assert.Equal(t, session, stats["session"])
	assert.Equal(t, true, stats["is_running"])
}

func TestSessionRepromptsInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	defer conn.Close()
	readUntil(t, conn, MessageTypeStatus, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "drop", "amount": "abc"}))
	reprompt := readUntil(t, conn, MessageTypeReprompt, 1)[0]
	assert.Equal(t, "invalid_amount", reprompt["reason"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "drop", "amount": -3}))
	readUntil(t, conn, MessageTypeReprompt, 1)
}

func TestSessionPingPongAndViewport(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	defer conn.Close()
	readUntil(t, conn, MessageTypeStatus, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "client_time": 777}))
	pong := readUntil(t, conn, MessageTypePong, 1)[0]
	assert.EqualValues(t, 777, pong["client_time"])
	assert.NotZero(t, pong["server_time"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "viewport", "width": 640, "height": 480}))
	camera := readUntil(t, conn, MessageTypeCamera, 1)[0]["camera"].(map[string]interface{})
	assert.EqualValues(t, 640, camera["width"])
	assert.EqualValues(t, 480, camera["height"])

	// неизвестные сообщения не закрывают сессию
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "client_time": 1}))
	readUntil(t, conn, MessageTypePong, 1)
}

func TestSessionClosesOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	session := readUntil(t, conn, MessageTypeInfo, 1)[0]["session"].(string)
	readUntil(t, conn, MessageTypeStatus, 1)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		_, ok := env.server.Session(session)
		return !ok
	}, 3*time.Second, 10*time.Millisecond)

	_, ok := env.hub.Get(session)
	assert.True(t, ok, "telemetry outlives the connection")

	var resp map[string]interface{}
	assert.Equal(t, http.StatusNotFound, env.getJSON(t, "/api/sessions/"+session+"/stats", &resp))
}

func TestShutdownClosesSessions(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env.http, "/ws")
	defer conn.Close()
	readUntil(t, conn, MessageTypeStatus, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))
	assert.Empty(t, env.server.SessionIDs())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
