package stub

import (
	"testing"
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *MemoryStore {
	s := NewMemoryStore(func() time.Time { return now })
	s.AddUser(domain.User{ID: 1, Username: "alice"})
	s.AddItem(domain.Auction{
		ID:             1,
		Name:           "Vintage Camera",
		Description:    "Rangefinder",
		StartingPrice:  decimal.RequireFromString("50.00"),
		CreatedAt:      now.Add(-time.Hour),
		AuctionEndTime: now.Add(time.Hour),
	})
	return s
}

func TestMemoryStore_PlaceBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		req           domain.PlaceBidRequest
		expectedError error
	}{
		{name: "equal_to_start", req: domain.PlaceBidRequest{UserID: 1, ItemID: 1, Amount: decimal.RequireFromString("50.00")}, expectedError: ErrBidTooLow},
		{name: "unknown_item", req: domain.PlaceBidRequest{UserID: 1, ItemID: 9, Amount: decimal.RequireFromString("60")}, expectedError: ErrItemNotFound},
		{name: "unknown_user", req: domain.PlaceBidRequest{UserID: 9, ItemID: 1, Amount: decimal.RequireFromString("60")}, expectedError: ErrUserNotFound},
		{name: "zero_amount", req: domain.PlaceBidRequest{UserID: 1, ItemID: 1, Amount: decimal.Zero}, expectedError: ErrInvalidBid},
		{name: "valid", req: domain.PlaceBidRequest{UserID: 1, ItemID: 1, Amount: decimal.RequireFromString("50.01")}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore()

			bid, err := s.PlaceBid(tc.req)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, int64(1), bid.ItemID)
			require.Equal(t, "alice", bid.Username)
		})
	}
}

func TestMemoryStore_BidsNewestFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	for _, amount := range []string{"51", "52", "53"} {
		_, err := s.PlaceBid(domain.PlaceBidRequest{UserID: 1, ItemID: 1, Amount: decimal.RequireFromString(amount)})
		require.NoError(t, err)
	}

	d, err := s.Detail(1)
	require.NoError(t, err)
	require.Len(t, d.Bids, 3)
	require.Equal(t, int64(3), d.Bids[0].ID)
	require.True(t, d.CurrentHighestBid.Equal(decimal.RequireFromString("53")))
	require.Equal(t, domain.AuctionActive, d.Status)
	require.Equal(t, time.Hour.Milliseconds(), d.TimeRemaining)
}

func TestMemoryStore_EndedAuction(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	s.AddItem(domain.Auction{
		ID:             2,
		Name:           "Poster",
		Description:    "Framed",
		StartingPrice:  decimal.RequireFromString("10"),
		CreatedAt:      now.Add(-2 * time.Hour),
		AuctionEndTime: now.Add(-time.Hour),
	})

	_, err := s.PlaceBid(domain.PlaceBidRequest{UserID: 1, ItemID: 2, Amount: decimal.RequireFromString("20")})
	require.ErrorIs(t, err, ErrAuctionEnded)

	d, err := s.Detail(2)
	require.NoError(t, err)
	require.Equal(t, domain.AuctionEnded, d.Status)
	require.Zero(t, d.TimeRemaining)
}

func TestMemoryStore_ListPages(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	for i := 0; i < 4; i++ {
		_, err := s.CreateItem(domain.CreateItemRequest{
			Name:           "Item",
			Description:    "Thing",
			StartingPrice:  decimal.RequireFromString("1"),
			AuctionEndTime: now.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	page := s.List(2, 2)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(3), page.Items[0].ID)
	require.Equal(t, domain.PageMeta{Total: 5, Page: 2, Limit: 2, TotalPages: 3, HasNextPage: true, HasPreviousPage: true}, page.Meta)

	require.Empty(t, s.List(9, 2).Items)
}

func TestMemoryStore_CreateItemValidation(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	_, err := s.CreateItem(domain.CreateItemRequest{Name: "x", Description: "y", StartingPrice: decimal.RequireFromString("1"), AuctionEndTime: now})
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = s.CreateItem(domain.CreateItemRequest{Name: "", Description: "y", StartingPrice: decimal.RequireFromString("1"), AuctionEndTime: now.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidItem)
}
