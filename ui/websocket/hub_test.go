package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AzielCF/az-speed/pkg/optmonitor"
	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func newHubApp(t *testing.T) (*Hub, *optmonitor.Monitor, *fiber.App) {
	t.Helper()
	hub := NewHub(nil, "server-a")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	monitor := optmonitor.New(10, 0)
	monitor.Subscribe(hub.MonitorEvent)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRoutes(app.Group("/admin"), hub, monitor)
	return hub, monitor, app
}

func dial(t *testing.T, hub *Hub, app *fiber.App) *fastws.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/admin/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *fastws.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg received
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestRegisterRoutes_RequiresUpgrade(t *testing.T) {
	_, _, app := newHubApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHub_BroadcastsMonitorEvents(t *testing.T) {
	hub, monitor, app := newHubApp(t)
	conn := dial(t, hub, app)

	monitor.Record(optmonitor.Event{Method: "GET", Path: "/blog/", Status: optmonitor.StatusSkipped, Reason: "emergency"})

	msg := readMessage(t, conn)
	assert.Equal(t, CodeMonitorEvent, msg.Code)
	assert.Equal(t, optmonitor.StatusSkipped, msg.Message)

	var ev optmonitor.Event
	require.NoError(t, json.Unmarshal(msg.Result, &ev))
	assert.Equal(t, "/blog/", ev.Path)
	assert.Equal(t, "emergency", ev.Reason)
	assert.NotEmpty(t, ev.TraceID)
}

func TestHub_BroadcastsEmergencyTrips(t *testing.T) {
	hub, _, app := newHubApp(t)
	conn := dial(t, hub, app)

	until := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hub.EmergencyTripped(11, until)

	msg := readMessage(t, conn)
	assert.Equal(t, CodeEmergency, msg.Code)

	var trip EmergencyTrip
	require.NoError(t, json.Unmarshal(msg.Result, &trip))
	assert.Equal(t, int64(11), trip.Errors)
	assert.True(t, until.Equal(trip.Until))
}

func TestHub_FetchStats(t *testing.T) {
	hub, monitor, app := newHubApp(t)
	monitor.Record(optmonitor.Event{Path: "/a", Status: optmonitor.StatusOptimized, BytesIn: 500, BytesOut: 300})
	conn := dial(t, hub, app)

	require.NoError(t, conn.WriteJSON(map[string]string{"code": CodeFetchStats}))

	msg := readMessage(t, conn)
	require.Equal(t, CodeStats, msg.Code)

	var stats optmonitor.Stats
	require.NoError(t, json.Unmarshal(msg.Result, &stats))
	assert.Equal(t, int64(1), stats.TotalOptimized)
	assert.Equal(t, int64(200), stats.BytesSaved)
}

func TestHub_UnregistersClosedConnections(t *testing.T) {
	hub, _, app := newHubApp(t)
	conn := dial(t, hub, app)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub(nil, "server-a")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.MonitorEvent(optmonitor.Event{Path: "/", Status: optmonitor.StatusSkipped})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
