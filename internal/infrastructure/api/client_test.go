package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/internal/stub"
	"auction-tracker/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStubClient(t *testing.T) (*Client, *stub.MemoryStore) {
	t.Helper()

	store := stub.NewMemoryStore(nil)
	store.Seed()
	srv := httptest.NewServer(stub.NewServer(store, logger.NewNop()).Router())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL+"/", srv.Client(), logger.NewNop()), store
}

func TestClient_ListAuctions(t *testing.T) {
	t.Parallel()
	c, _ := newStubClient(t)

	page, err := c.ListAuctions(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Meta.Total)
	require.True(t, page.Meta.HasNextPage)
	require.True(t, page.Items[0].StartingPrice.Equal(decimal.RequireFromString("50.00")))
}

func TestClient_GetAuction(t *testing.T) {
	t.Parallel()
	c, _ := newStubClient(t)

	d, err := c.GetAuction(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Vintage Camera", d.Name)
	require.Equal(t, domain.AuctionActive, d.Status)
	require.Positive(t, d.TimeRemaining)

	ended, err := c.GetAuction(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, domain.AuctionEnded, ended.Status)

	_, err = c.GetAuction(context.Background(), 404)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
	require.Equal(t, auctionerrors.KindNetwork, auctionerrors.KindOf(err))
}

func TestClient_PlaceBid(t *testing.T) {
	t.Parallel()
	c, _ := newStubClient(t)
	ctx := context.Background()

	bid, err := c.PlaceBid(ctx, domain.PlaceBidRequest{UserID: 2, ItemID: 1, Amount: decimal.RequireFromString("50.01")})
	require.NoError(t, err)
	require.Equal(t, "bob", bid.Username)
	require.True(t, bid.Amount.Equal(decimal.RequireFromString("50.01")))

	d, err := c.GetAuction(ctx, 1)
	require.NoError(t, err)
	require.Len(t, d.Bids, 1)
	require.True(t, d.CurrentHighestBid.Equal(decimal.RequireFromString("50.01")))

	_, err = c.PlaceBid(ctx, domain.PlaceBidRequest{UserID: 2, ItemID: 1, Amount: decimal.RequireFromString("50.01")})
	var statusErr *UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusConflict, statusErr.Code)
	require.Contains(t, statusErr.Body, "too low")
	require.Equal(t, auctionerrors.KindNetwork, auctionerrors.KindOf(err))
}

func TestClient_CreateItem(t *testing.T) {
	t.Parallel()
	c, _ := newStubClient(t)
	ctx := context.Background()

	end := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)
	item, err := c.CreateItem(ctx, domain.CreateItemRequest{
		Name:           "Desk Lamp",
		Description:    "Brass",
		StartingPrice:  decimal.RequireFromString("12.34"),
		AuctionEndTime: end,
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), item.ID)
	require.True(t, item.AuctionEndTime.Equal(end))
	require.True(t, item.StartingPrice.Equal(decimal.RequireFromString("12.34")))

	_, err = c.CreateItem(ctx, domain.CreateItemRequest{Name: "x", Description: "y", StartingPrice: decimal.RequireFromString("1"), AuctionEndTime: time.Now().Add(-time.Hour)})
	var statusErr *UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestClient_ListUsers(t *testing.T) {
	t.Parallel()
	c, _ := newStubClient(t)

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}, {ID: 3, Username: "carol"}}, users)
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil, logger.NewNop())
	_, err := c.ListAuctions(context.Background(), 1, 10)
	require.Error(t, err)
	require.Equal(t, auctionerrors.KindNetwork, auctionerrors.KindOf(err))
}

func TestClient_SendsRequestID(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), logger.NewNop())
	_, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, <-got, 36)
}
