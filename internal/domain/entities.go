package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Auction is one listed item. Money is carried as decimal text on the wire.
type Auction struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	StartingPrice     decimal.Decimal `json:"startingPrice"`
	CurrentHighestBid decimal.Decimal `json:"currentHighestBid"`
	CreatedAt         time.Time       `json:"createdAt"`
	AuctionEndTime    time.Time       `json:"auctionEndTime"`
}

// Bid is an accepted bid. ItemID is only present on some push payloads.
type Bid struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"itemId,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
	UserID    int64           `json:"userId"`
	Username  string          `json:"username"`
}

// AuctionDetail is the GET /items/{id} payload. Bids are newest first.
type AuctionDetail struct {
	Auction
	Bids          []Bid         `json:"bids"`
	TimeRemaining int64         `json:"timeRemaining"`
	Status        AuctionStatus `json:"status"`
}

type PageMeta struct {
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type AuctionPage struct {
	Items []Auction `json:"items"`
	Meta  PageMeta  `json:"meta"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type PlaceBidRequest struct {
	UserID int64           `json:"userId"`
	ItemID int64           `json:"itemId"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateItemRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	StartingPrice  decimal.Decimal `json:"startingPrice"`
	AuctionEndTime time.Time       `json:"auctionEndTime"`
}

type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota
	AuctionEnded
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

func (s AuctionStatus) MarshalText() ([]byte, error) {
	switch s {
	case AuctionActive, AuctionEnded:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid auction status %d", int(s))
}

func (s *AuctionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = AuctionActive
	case "ended":
		*s = AuctionEnded
	default:
		return fmt.Errorf("unknown auction status %q", string(text))
	}
	return nil
}

// BidEvent is a push-delivered bid plus the room it arrived for.
type BidEvent struct {
	Type       BidEventType `json:"type"`
	AuctionID  int64        `json:"auction_id"`
	Bid        Bid          `json:"bid"`
	ReceivedAt time.Time    `json:"received_at"`
}

type BidEventType string

const (
	NewBid BidEventType = "newBid"
)
