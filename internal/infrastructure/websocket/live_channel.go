package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// LiveChannel is the client side of the push channel. One instance is shared
// by every detail view of a process; it is constructed explicitly and owned by
// whoever composes the views.
type LiveChannel struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	log    logger.Logger

	mu        sync.Mutex // guards conn, handler, rooms
	writeMu   sync.Mutex // gorilla allows one concurrent writer
	conn      *websocket.Conn
	handler   domain.BidEventHandler
	handlerID string
	rooms     map[int64]struct{}
	now       func() time.Time
}

func NewLiveChannel(url string, dialTimeout time.Duration, log logger.Logger) *LiveChannel {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &LiveChannel{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: dialTimeout,
		},
		header: http.Header{},
		log:    log,
		rooms:  make(map[int64]struct{}),
		now:    time.Now,
	}
}

// Connect dials once; it is a no-op while a connection is established. The
// dial runs without lc.mu held. If two dials race, the first to finish wins.
func (lc *LiveChannel) Connect(ctx context.Context) error {
	if lc.Connected() {
		return nil
	}

	conn, _, err := lc.dialer.DialContext(ctx, lc.url, lc.header)
	if err != nil {
		lc.log.Warn("Live channel connect failed", "url", lc.url, "error", err)
		return auctionerrors.Channel("Connect", err)
	}

	lc.mu.Lock()
	if lc.conn != nil {
		lc.mu.Unlock()
		conn.Close()
		return nil
	}
	lc.conn = conn
	lc.mu.Unlock()
	lc.log.Info("Live channel connected", "url", lc.url)

	go lc.readLoop(conn)
	return nil
}

func (lc *LiveChannel) Disconnect() error {
	lc.mu.Lock()
	conn := lc.conn
	lc.conn = nil
	lc.rooms = make(map[int64]struct{})
	lc.mu.Unlock()

	if conn == nil {
		return nil
	}

	lc.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	lc.writeMu.Unlock()

	lc.log.Info("Live channel disconnected", "url", lc.url)
	return conn.Close()
}

func (lc *LiveChannel) Connected() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.conn != nil
}

func (lc *LiveChannel) JoinRoom(auctionID int64) error {
	if err := lc.send(EventJoinAuction, auctionID); err != nil {
		return auctionerrors.Channel("JoinRoom", err)
	}
	lc.mu.Lock()
	lc.rooms[auctionID] = struct{}{}
	lc.mu.Unlock()
	return nil
}

func (lc *LiveChannel) LeaveRoom(auctionID int64) error {
	lc.mu.Lock()
	delete(lc.rooms, auctionID)
	lc.mu.Unlock()

	if err := lc.send(EventLeaveAuction, auctionID); err != nil {
		return auctionerrors.Channel("LeaveRoom", err)
	}
	return nil
}

// OnEvent replaces the current handler and returns its token.
func (lc *LiveChannel) OnEvent(handler domain.BidEventHandler) string {
	token := uuid.NewString()

	lc.mu.Lock()
	lc.handler = handler
	lc.handlerID = token
	lc.mu.Unlock()

	return token
}

// RemoveHandler is a no-op when token was already superseded.
func (lc *LiveChannel) RemoveHandler(token string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.handlerID == token {
		lc.handler = nil
		lc.handlerID = ""
	}
}

func (lc *LiveChannel) send(event string, data interface{}) error {
	lc.mu.Lock()
	conn := lc.conn
	lc.mu.Unlock()

	if conn == nil {
		return auctionerrors.ErrChannelClosed
	}

	msg, err := newEnvelope(event, data)
	if err != nil {
		return err
	}

	lc.writeMu.Lock()
	defer lc.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (lc *LiveChannel) readLoop(conn *websocket.Conn) {
	defer lc.dropConn(conn)

	for {
		var msg Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				lc.log.Warn("Live channel read failed", "error", err)
			}
			return
		}

		switch msg.Event {
		case EventNewBid:
			lc.dispatchBid(msg.Data)
		case EventPong:
		default:
			lc.log.Debug("Ignoring channel event", "event", msg.Event)
		}
	}
}

func (lc *LiveChannel) dispatchBid(data json.RawMessage) {
	var bid domain.Bid
	if err := json.Unmarshal(data, &bid); err != nil {
		lc.log.Warn("Malformed newBid payload", "payload", string(data), "error", err)
		return
	}

	lc.mu.Lock()
	handler := lc.handler
	lc.mu.Unlock()

	if handler == nil {
		return
	}
	handler(&domain.BidEvent{
		Type:       domain.NewBid,
		AuctionID:  bid.ItemID,
		Bid:        bid,
		ReceivedAt: lc.now(),
	})
}

// dropConn forgets conn if it is still the current connection.
func (lc *LiveChannel) dropConn(conn *websocket.Conn) {
	lc.mu.Lock()
	if lc.conn == conn {
		lc.conn = nil
		lc.rooms = make(map[int64]struct{})
	}
	lc.mu.Unlock()
	conn.Close()
}

// Rooms lists the rooms joined on the current connection.
func (lc *LiveChannel) Rooms() []int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	rooms := make([]int64, 0, len(lc.rooms))
	for id := range lc.rooms {
		rooms = append(rooms, id)
	}
	return rooms
}

func (lc *LiveChannel) String() string {
	return fmt.Sprintf("LiveChannel(%s)", lc.url)
}
