package services

import (
	"context"
	"time"

	"auction-tracker/internal/domain"
	"auction-tracker/pkg/logger"
)

// BidFanout forwards newly observed bids to the optional sinks. Sink failures
// are logged and never reach the view.
type BidFanout struct {
	publisher domain.EventPublisher
	archive   domain.BidArchive
	timeout   time.Duration
	log       logger.Logger
}

// NewBidFanout accepts nil sinks; a fanout with no sinks does nothing.
func NewBidFanout(publisher domain.EventPublisher, archive domain.BidArchive, log logger.Logger) *BidFanout {
	return &BidFanout{
		publisher: publisher,
		archive:   archive,
		timeout:   3 * time.Second,
		log:       log,
	}
}

func (f *BidFanout) Enabled() bool {
	return f != nil && (f.publisher != nil || f.archive != nil)
}

func (f *BidFanout) Deliver(ctx context.Context, event *domain.BidEvent) {
	if !f.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.publisher != nil {
		if err := f.publisher.PublishBidEvent(ctx, event); err != nil {
			f.log.Error("Failed to publish bid event", "auction_id", event.AuctionID, "bid_id", event.Bid.ID, "error", err)
		}
	}
	if f.archive != nil {
		if err := f.archive.SaveBidEvent(ctx, event); err != nil {
			f.log.Error("Failed to archive bid event", "auction_id", event.AuctionID, "bid_id", event.Bid.ID, "error", err)
		}
	}
}
