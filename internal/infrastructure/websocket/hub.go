package websocket

import (
	"sync"

	"auction-tracker/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub is the server side of the channel: room membership per auction.
type Hub struct {
	rooms map[int64]map[string]*Connection // auctionID -> connID -> connection
	conns map[string]*Connection
	mutex sync.RWMutex
	log   logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[int64]map[string]*Connection),
		conns: make(map[string]*Connection),
		log:   log,
	}
}

func (h *Hub) Register(conn *Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.conns[conn.id] = conn
	h.log.Info("Connection registered", "conn_id", conn.id)
}

func (h *Hub) Join(conn *Connection, auctionID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.rooms[auctionID] == nil {
		h.rooms[auctionID] = make(map[string]*Connection)
	}
	h.rooms[auctionID][conn.id] = conn

	h.log.Info("Joined auction room", "conn_id", conn.id, "auction_id", auctionID)
}

func (h *Hub) Leave(conn *Connection, auctionID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.leaveLocked(conn.id, auctionID)
	h.log.Info("Left auction room", "conn_id", conn.id, "auction_id", auctionID)
}

func (h *Hub) leaveLocked(connID string, auctionID int64) {
	if room, exists := h.rooms[auctionID]; exists {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, auctionID)
		}
	}
}

// Unregister removes conn from every room.
func (h *Hub) Unregister(conn *Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for auctionID := range h.rooms {
		h.leaveLocked(conn.id, auctionID)
	}
	delete(h.conns, conn.id)

	h.log.Info("Connection unregistered", "conn_id", conn.id)
}

func (h *Hub) RoomSize(auctionID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[auctionID])
}

func (h *Hub) connectionsFor(auctionID int64) []*Connection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var connections []*Connection
	for _, conn := range h.rooms[auctionID] {
		connections = append(connections, conn)
	}
	return connections
}

// BroadcastToAuction sends one event to every member of the auction's room.
// A failed send is logged and does not stop delivery to the others.
func (h *Hub) BroadcastToAuction(auctionID int64, event string, payload interface{}) error {
	msg, err := newEnvelope(event, payload)
	if err != nil {
		return err
	}

	connections := h.connectionsFor(auctionID)
	h.log.Debug("Broadcasting to auction", "auction_id", auctionID, "event", event, "connections", len(connections))

	for _, conn := range connections {
		if err := conn.Send(msg); err != nil {
			h.log.Error("Failed to send message", "conn_id", conn.id, "auction_id", auctionID, "error", err)
		}
	}
	return nil
}

// Connection wraps one upgraded socket.
type Connection struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewConnection(conn *websocket.Conn) *Connection {
	return &Connection{
		id:   uuid.NewString(),
		conn: conn,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) ID() string {
	return c.id
}
