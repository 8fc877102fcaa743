package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

const createBidEventsTable = `
CREATE TABLE IF NOT EXISTS bid_events (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    auction_id  BIGINT NOT NULL,
    bid_id      BIGINT NOT NULL,
    user_id     BIGINT NOT NULL,
    amount      DECIMAL(18,2) NOT NULL,
    event_type  VARCHAR(32) NOT NULL,
    timestamp   DATETIME(3) NOT NULL,
    created_at  DATETIME(3) NOT NULL,
    UNIQUE KEY uniq_auction_bid (auction_id, bid_id)
)`

// MySQLBidArchive journals every bid a tracker observed, once per bid id.
type MySQLBidArchive struct {
	db *sql.DB
}

func NewMySQLBidArchive(db *sql.DB) *MySQLBidArchive {
	return &MySQLBidArchive{db: db}
}

func (r *MySQLBidArchive) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBidEventsTable); err != nil {
		return fmt.Errorf("create bid_events: %w", err)
	}
	return nil
}

func (r *MySQLBidArchive) SaveBidEvent(ctx context.Context, event *domain.BidEvent) error {
	query := `
        INSERT IGNORE INTO bid_events (auction_id, bid_id, user_id, amount, event_type, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.AuctionID, event.Bid.ID, event.Bid.UserID, event.Bid.Amount.StringFixed(2),
		string(event.Type), event.Bid.CreatedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save bid event %d/%d: %w", event.AuctionID, event.Bid.ID, err)
	}
	return nil
}

// GetBidHistory returns the journaled bids of one auction, oldest first.
func (r *MySQLBidArchive) GetBidHistory(ctx context.Context, auctionID int64) ([]*domain.BidEvent, error) {
	query := `
        SELECT auction_id, bid_id, user_id, amount, event_type, timestamp
        FROM bid_events
        WHERE auction_id = ?
        ORDER BY timestamp ASC, bid_id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.BidEvent
	for rows.Next() {
		var event domain.BidEvent
		var eventType, amount string

		err := rows.Scan(&event.AuctionID, &event.Bid.ID, &event.Bid.UserID, &amount,
			&eventType, &event.Bid.CreatedAt)
		if err != nil {
			return nil, err
		}

		event.Bid.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bid %d amount %q: %w", event.Bid.ID, amount, err)
		}
		event.Bid.ItemID = event.AuctionID
		event.Type = domain.BidEventType(eventType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
