package stub

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidBid   = errors.New("invalid bid")
	ErrBidTooLow    = errors.New("bid amount too low")
	ErrAuctionEnded = errors.New("auction has ended")
	ErrInvalidItem  = errors.New("invalid item")
)

// MemoryStore is a concurrency-safe in-memory stand-in for the auction service.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[int64]domain.Auction
	bids     map[int64][]domain.Bid // itemID -> bids, newest first
	users    map[int64]domain.User
	nextItem int64
	nextBid  int64
	now      func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		items:    make(map[int64]domain.Auction),
		bids:     make(map[int64][]domain.Bid),
		users:    make(map[int64]domain.User),
		nextItem: 1,
		nextBid:  1,
		now:      now,
	}
}

func (s *MemoryStore) AddUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryStore) ListUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// CreateItem stores a new auction open from now until req.AuctionEndTime.
func (s *MemoryStore) CreateItem(req domain.CreateItemRequest) (domain.Auction, error) {
	if req.Name == "" || req.Description == "" {
		return domain.Auction{}, fmt.Errorf("create item: %w - name and description required", ErrInvalidItem)
	}
	if !req.StartingPrice.IsPositive() {
		return domain.Auction{}, fmt.Errorf("create item: %w - starting price must be positive", ErrInvalidItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if !req.AuctionEndTime.After(now) {
		return domain.Auction{}, fmt.Errorf("create item: %w - end time must be in the future", ErrInvalidItem)
	}

	item := domain.Auction{
		ID:                s.nextItem,
		Name:              req.Name,
		Description:       req.Description,
		StartingPrice:     req.StartingPrice,
		CurrentHighestBid: req.StartingPrice,
		CreatedAt:         now,
		AuctionEndTime:    req.AuctionEndTime.UTC(),
	}
	s.nextItem++
	s.items[item.ID] = item
	return item, nil
}

// AddItem stores item as is, keeping its id. Intended for seeding and tests.
func (s *MemoryStore) AddItem(item domain.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.CurrentHighestBid.IsZero() {
		item.CurrentHighestBid = item.StartingPrice
	}
	s.items[item.ID] = item
	if item.ID >= s.nextItem {
		s.nextItem = item.ID + 1
	}
}

func (s *MemoryStore) List(page, limit int) domain.AuctionPage {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Auction, 0, len(s.items))
	for _, item := range s.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return domain.AuctionPage{
		Items: all[start:end],
		Meta: domain.PageMeta{
			Total:           total,
			Page:            page,
			Limit:           limit,
			TotalPages:      totalPages,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}
}

func (s *MemoryStore) Detail(itemID int64) (domain.AuctionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return domain.AuctionDetail{}, fmt.Errorf("get item %d: %w", itemID, ErrItemNotFound)
	}

	remaining := item.AuctionEndTime.Sub(s.now())
	status := domain.AuctionActive
	if remaining <= 0 {
		remaining = 0
		status = domain.AuctionEnded
	}

	return domain.AuctionDetail{
		Auction:       item,
		Bids:          append([]domain.Bid{}, s.bids[itemID]...),
		TimeRemaining: remaining.Milliseconds(),
		Status:        status,
	}, nil
}

// PlaceBid accepts a bid strictly above the current highest bid of an open auction.
func (s *MemoryStore) PlaceBid(req domain.PlaceBidRequest) (domain.Bid, error) {
	if !req.Amount.IsPositive() {
		return domain.Bid{}, fmt.Errorf("place bid: %w - non-positive amount", ErrInvalidBid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[req.ItemID]
	if !ok {
		return domain.Bid{}, fmt.Errorf("place bid on %d: %w", req.ItemID, ErrItemNotFound)
	}
	user, ok := s.users[req.UserID]
	if !ok {
		return domain.Bid{}, fmt.Errorf("place bid by %d: %w", req.UserID, ErrUserNotFound)
	}

	now := s.now().UTC()
	if !now.Before(item.AuctionEndTime) {
		return domain.Bid{}, fmt.Errorf("place bid on %d: %w", req.ItemID, ErrAuctionEnded)
	}
	if !req.Amount.GreaterThan(item.CurrentHighestBid) {
		return domain.Bid{}, fmt.Errorf("place bid: %w - current highest bid is %s", ErrBidTooLow, item.CurrentHighestBid.StringFixed(2))
	}

	bid := domain.Bid{
		ID:        s.nextBid,
		ItemID:    item.ID,
		Amount:    req.Amount,
		CreatedAt: now,
		UserID:    user.ID,
		Username:  user.Username,
	}
	s.nextBid++

	s.bids[item.ID] = append([]domain.Bid{bid}, s.bids[item.ID]...)
	item.CurrentHighestBid = req.Amount
	s.items[item.ID] = item

	return bid, nil
}

// Seed fills an empty store with demo users and items.
func (s *MemoryStore) Seed() {
	now := s.now().UTC()
	s.AddUser(domain.User{ID: 1, Username: "alice"})
	s.AddUser(domain.User{ID: 2, Username: "bob"})
	s.AddUser(domain.User{ID: 3, Username: "carol"})

	seed := []domain.Auction{
		{ID: 1, Name: "Vintage Camera", Description: "Rangefinder, 1962, working shutter", StartingPrice: decimal.RequireFromString("50.00"), CreatedAt: now.Add(-time.Hour), AuctionEndTime: now.Add(2 * time.Hour)},
		{ID: 2, Name: "Mechanical Keyboard", Description: "Tenkeyless, brown switches", StartingPrice: decimal.RequireFromString("80.00"), CreatedAt: now.Add(-24 * time.Hour), AuctionEndTime: now.Add(3 * 24 * time.Hour)},
		{ID: 3, Name: "Signed Poster", Description: "Limited print, framed", StartingPrice: decimal.RequireFromString("120.00"), CreatedAt: now.Add(-48 * time.Hour), AuctionEndTime: now.Add(-time.Hour)},
	}
	for _, item := range seed {
		s.AddItem(item)
	}
}
