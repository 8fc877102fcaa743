package websocket

import (
	"encoding/json"
	"net/http"

	"auction-tracker/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades requests and serves room join/leave for the Hub.
type WebSocketHandler struct {
	hub *Hub
	log logger.Logger
}

func NewWebSocketHandler(hub *Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		log: log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn)
	h.hub.Register(wsConn)

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		var msg Envelope
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Failed to read message", "conn_id", conn.id, "error", err)
			}
			return
		}

		switch msg.Event {
		case EventJoinAuction, EventLeaveAuction:
			var auctionID int64
			if err := json.Unmarshal(msg.Data, &auctionID); err != nil {
				h.log.Warn("Invalid auction id", "conn_id", conn.id, "data", string(msg.Data))
				continue
			}
			if msg.Event == EventJoinAuction {
				h.hub.Join(conn, auctionID)
			} else {
				h.hub.Leave(conn, auctionID)
			}
		case EventPing:
			conn.Send(Envelope{Event: EventPong})
		default:
			h.log.Debug("Ignoring message", "conn_id", conn.id, "event", msg.Event)
		}
	}
}
