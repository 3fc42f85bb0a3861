package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-speed/infrastructure/valkey"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	valkeylib "github.com/valkey-io/valkey-go"
)

// Message codes sent to admin clients.
const (
	CodeMonitorEvent = "MONITOR_EVENT"
	CodeEmergency    = "EMERGENCY_DISABLED"
	CodeStats        = "MONITOR_STATS"
	CodeFetchStats   = "FETCH_STATS"
)

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

type EmergencyTrip struct {
	Errors int64     `json:"errors"`
	Until  time.Time `json:"until"`
}

// Hub fans messages out to the connected admin pages and, when a Valkey
// client is set, to the other instances of the proxy.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan BroadcastMessage
	connected  atomic.Int64
	done       chan struct{}

	vk       *valkey.Client
	channel  string
	serverID string
}

// NewHub creates a hub. vk may be nil for a single instance deployment.
func NewHub(vk *valkey.Client, serverID string) *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan BroadcastMessage, 256),
		done:       make(chan struct{}),
		vk:         vk,
		serverID:   serverID,
	}
	if vk != nil {
		h.channel = vk.Key("ws_broadcast")
	}
	return h
}

// Connected is the number of local clients.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Publish queues msg for every client. A full queue drops the message
// rather than holding up the caller.
func (h *Hub) Publish(msg BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logrus.WithField("code", msg.Code).Debug("[WS] broadcast queue full, message dropped")
	}
}

// MonitorEvent is an optmonitor subscriber.
func (h *Hub) MonitorEvent(e optmonitor.Event) {
	h.Publish(BroadcastMessage{Code: CodeMonitorEvent, Message: e.Status, Result: e})
}

// EmergencyTripped is a throttle trip callback.
func (h *Hub) EmergencyTripped(errors int64, until time.Time) {
	h.Publish(BroadcastMessage{
		Code:    CodeEmergency,
		Message: "Optimizations disabled after repeated errors",
		Result:  EmergencyTrip{Errors: errors, Until: until},
	})
}

// Run serves the hub until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.vk != nil {
		h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return

		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			h.connected.Store(int64(len(h.clients)))
			logrus.Debug("[WS] Connection registered")

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				h.connected.Store(int64(len(h.clients)))
			}
			logrus.Debug("[WS] Connection unregistered")

		case msg := <-h.broadcast:
			h.broadcastToLocal(msg)
			if h.vk != nil && msg.SenderID == "" {
				h.publishToValkey(msg)
			}
		}
	}
}

func (h *Hub) broadcastToLocal(msg BroadcastMessage) {
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) publishToValkey(msg BroadcastMessage) {
	msg.SenderID = h.serverID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	cmd := h.vk.Inner().B().Publish().Channel(h.channel).Message(string(data)).Build()
	if err := h.vk.Inner().Do(context.Background(), cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

// subscribe relays messages published by the other instances. Messages
// carry a sender id so an instance ignores its own.
func (h *Hub) subscribe(ctx context.Context) {
	logrus.WithField("channel", h.channel).Info("[WS] Starting Valkey Pub/Sub subscriber")
	go func() {
		err := h.vk.Inner().Receive(ctx, h.vk.Inner().B().Subscribe().Channel(h.channel).Build(), func(m valkeylib.PubSubMessage) {
			var msg BroadcastMessage
			if err := json.Unmarshal([]byte(m.Message), &msg); err != nil || msg.SenderID == h.serverID {
				return
			}
			h.Publish(msg)
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func (h *Hub) closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
	h.connected.Store(int64(len(h.clients)))
}

// RegisterRoutes mounts /ws on r. Clients may send FETCH_STATS to have
// the current monitor totals broadcast.
func RegisterRoutes(r fiber.Router, h *Hub, monitor *optmonitor.Monitor) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	r.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		select {
		case h.register <- conn:
		case <-h.done:
			return
		}
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
			_ = conn.Close()
		}()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}

			var req BroadcastMessage
			if err := json.Unmarshal(message, &req); err != nil {
				logrus.Debugf("[WS] unmarshal error: %v", err)
				return
			}
			if req.Code == CodeFetchStats {
				h.Publish(BroadcastMessage{Code: CodeStats, Message: "Monitor stats", Result: monitor.GetStats()})
			}
		}
	}))
}
