package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"auction-tracker/internal/domain"
	"auction-tracker/internal/stub"
	"auction-tracker/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) string {
	t.Helper()
	store := stub.NewMemoryStore(nil)
	store.Seed()
	srv := httptest.NewServer(stub.NewServer(store, logger.NewNop()).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

// run executes the command tree in-process. Commands share package-level
// flag variables, so these tests do not run in parallel.
func run(t *testing.T, backend string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--base-url", backend, "--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListAndUsers(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend, "list")
	require.NoError(t, err)
	require.Contains(t, out, "Vintage Camera")
	require.Contains(t, out, "Auction Ended")
	require.Contains(t, out, "page 1 of 1 (3 auctions)")

	out, err = run(t, backend, "users")
	require.NoError(t, err)
	require.Contains(t, out, "alice")
	require.Contains(t, out, "carol")
}

func TestShowAndBid(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend, "show", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Vintage Camera")
	require.Contains(t, out, "Current Highest Bid: $50.00")
	require.Contains(t, out, "no bids yet")

	out, err = run(t, backend, "bid", "1", "50")
	require.Error(t, err)
	require.ErrorContains(t, err, "too low")

	out, err = run(t, backend, "bid", "1", "61.25")
	require.NoError(t, err)
	require.Contains(t, out, "Bid placed successfully! $61.25 on auction #1")

	out, err = run(t, backend, "show", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Current Highest Bid: $61.25")
	require.Contains(t, out, "alice")

	_, err = run(t, backend, "bid", "3", "500")
	require.ErrorContains(t, err, "ended")
}

func TestCreate(t *testing.T) {
	backend := newBackend(t)

	out, err := run(t, backend, "create", "--name", "Desk Lamp", "--description", "Brass", "--price", "25.50")
	require.NoError(t, err)
	require.Contains(t, out, "Item created: #4 Desk Lamp")

	out, err = run(t, backend, "list")
	require.NoError(t, err)
	require.Contains(t, out, "Desk Lamp")
}

func TestParseAuctionID(t *testing.T) {
	id, err := parseAuctionID("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseAuctionID(bad)
		require.Error(t, err, bad)
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, 7, nil))
	require.Equal(t, "no journaled bids for auction #7\n", buf.String())

	buf.Reset()
	events := []*domain.BidEvent{{
		AuctionID: 7,
		Bid: domain.Bid{
			ID:        3,
			UserID:    2,
			Amount:    decimal.RequireFromString("55.5"),
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	require.NoError(t, renderHistory(&buf, 7, events))
	require.Contains(t, buf.String(), "PLACED")
	require.Contains(t, buf.String(), "$55.50")
}
