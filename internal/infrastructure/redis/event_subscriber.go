package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"auction-tracker/internal/domain"
	"auction-tracker/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// RedisEventSubscriber tails the bid fan-out channel written by EventPublisherImpl.
type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToBidEvents blocks until ctx is done, calling handler for every parsed event.
func (r *RedisEventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.BidEventHandler) error {
	pubsub := r.client.Subscribe(ctx, BidEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to auction events", "channel", BidEventsChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := ParseBidEvent(msg.Payload)
			if err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}
			handler(event)

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

// ParseBidEvent is the inverse of FormatBidEvent. Bid ids are not carried.
func ParseBidEvent(payload string) (*domain.BidEvent, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid event format: %s", payload)
	}

	auctionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid auction id %q: %w", parts[0], err)
	}
	userID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", parts[2], err)
	}
	amount, err := decimal.NewFromString(parts[3])
	if err != nil {
		return nil, err
	}
	timestamp, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, err
	}

	return &domain.BidEvent{
		Type:      domain.NewBid,
		AuctionID: auctionID,
		Bid: domain.Bid{
			ItemID:    auctionID,
			UserID:    userID,
			Amount:    amount,
			CreatedAt: time.Unix(timestamp, 0).UTC(),
		},
		ReceivedAt: time.Now(),
	}, nil
}
