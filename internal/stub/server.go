package stub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"auction-tracker/internal/domain"
	"auction-tracker/internal/infrastructure/websocket"
	"auction-tracker/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Server is a development stand-in for the external auction service: the REST
// endpoints the client calls plus the push channel at /ws.
type Server struct {
	store *MemoryStore
	hub   *websocket.Hub
	ws    *websocket.WebSocketHandler
	log   logger.Logger
}

func NewServer(store *MemoryStore, log logger.Logger) *Server {
	hub := websocket.NewHub(log)
	return &Server{
		store: store,
		hub:   hub,
		ws:    websocket.NewWebSocketHandler(hub, log),
		log:   log,
	}
}

func (s *Server) Hub() *websocket.Hub { return s.hub }

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/items", s.listItems).Methods(http.MethodGet)
	router.HandleFunc("/items", s.createItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{id:[0-9]+}", s.getItem).Methods(http.MethodGet)
	router.HandleFunc("/bids", s.placeBid).Methods(http.MethodPost)
	router.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.ws.HandleConnection)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return router
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, s.store.List(page, limit))
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	detail, err := s.store.Detail(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type createItemRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	StartingPrice  decimal.Decimal `json:"startingPrice"`
	AuctionEndTime time.Time       `json:"auctionEndTime"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
		return
	}

	item, err := s.store.CreateItem(domain.CreateItemRequest{
		Name:           req.Name,
		Description:    req.Description,
		StartingPrice:  req.StartingPrice,
		AuctionEndTime: req.AuctionEndTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("Item created", "item_id", item.ID)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	var req domain.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request payload"})
		return
	}

	bid, err := s.store.PlaceBid(req)
	if err != nil {
		s.log.Info("Bid rejected", "item_id", req.ItemID, "user_id", req.UserID, "error", err)
		writeError(w, err)
		return
	}

	if err := s.hub.BroadcastToAuction(bid.ItemID, websocket.EventNewBid, bid); err != nil {
		s.log.Error("Failed to broadcast bid", "bid_id", bid.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListUsers())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidBid), errors.Is(err, ErrInvalidItem), errors.Is(err, ErrUserNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, ErrBidTooLow), errors.Is(err, ErrAuctionEnded):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"message": err.Error()})
}
