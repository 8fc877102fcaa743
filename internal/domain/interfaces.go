package domain

import (
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// AuctionAPI is the external REST service. Implementations never retry.
type AuctionAPI interface {
	ListAuctions(ctx context.Context, page, limit int) (*AuctionPage, error)
	GetAuction(ctx context.Context, auctionID int64) (*AuctionDetail, error)
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*Bid, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*Auction, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// BidEventHandler receives push events. It is called from the channel's reader goroutine.
type BidEventHandler func(event *BidEvent)

// LiveChannel is the push connection shared by every detail view.
// Only one handler is registered at a time; OnEvent supersedes the previous one
// and returns a token that RemoveHandler must present.
type LiveChannel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	JoinRoom(auctionID int64) error
	LeaveRoom(auctionID int64) error
	OnEvent(handler BidEventHandler) string
	RemoveHandler(token string)
}

// QueryCache holds query results by logical key.
type QueryCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	// Invalidate drops the key and every key it prefixes (e.g. "auctions").
	Invalidate(ctx context.Context, key string) error
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type BidArchive interface {
	SaveBidEvent(ctx context.Context, event *BidEvent) error
}
