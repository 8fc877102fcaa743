package redis

import (
	"testing"
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBidEventPayload(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.BidEvent{
		Type:      domain.NewBid,
		AuctionID: 42,
		Bid: domain.Bid{
			ID:        7,
			ItemID:    42,
			UserID:    3,
			Amount:    decimal.RequireFromString("55.5"),
			CreatedAt: createdAt,
		},
	}

	payload := FormatBidEvent(event)
	require.Equal(t, "42:bid_accepted:3:55.50:1740830400", payload)

	parsed, err := ParseBidEvent(payload)
	require.NoError(t, err)
	require.Equal(t, int64(42), parsed.AuctionID)
	require.Equal(t, int64(3), parsed.Bid.UserID)
	require.True(t, parsed.Bid.Amount.Equal(decimal.RequireFromString("55.50")))
	require.True(t, parsed.Bid.CreatedAt.Equal(createdAt))
}

func TestParseBidEventRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "too few parts", payload: "42:bid_accepted:3"},
		{name: "bad auction", payload: "x:bid_accepted:3:1.00:0"},
		{name: "bad user", payload: "42:bid_accepted:x:1.00:0"},
		{name: "bad amount", payload: "42:bid_accepted:3:abc:0"},
		{name: "bad timestamp", payload: "42:bid_accepted:3:1.00:soon"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseBidEvent(tt.payload)
			require.Error(t, err)
		})
	}
}
