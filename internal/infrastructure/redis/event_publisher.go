package redis

import (
	"context"
	"fmt"

	"auction-tracker/internal/domain"

	"github.com/go-redis/redis/v8"
)

const BidEventsChannel = "auction_events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	return r.client.Publish(ctx, BidEventsChannel, FormatBidEvent(event)).Err()
}

// FormatBidEvent renders <auctionID>:bid_accepted:<userID>:<amount>:<unix>.
func FormatBidEvent(event *domain.BidEvent) string {
	return fmt.Sprintf("%d:bid_accepted:%d:%s:%d",
		event.AuctionID, event.Bid.UserID, event.Bid.Amount.StringFixed(2), event.Bid.CreatedAt.Unix())
}
