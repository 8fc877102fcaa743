package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"auction-tracker/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) (*MySQLBidArchive, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewMySQLBidArchive(db), mock
}

func TestBidArchive_EnsureSchema(t *testing.T) {
	t.Parallel()
	archive, mock := newTestArchive(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS bid_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, archive.EnsureSchema(context.Background()))
}

func TestBidArchive_SaveBidEvent(t *testing.T) {
	t.Parallel()
	archive, mock := newTestArchive(t)

	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.BidEvent{
		Type:      domain.NewBid,
		AuctionID: 42,
		Bid: domain.Bid{
			ID:        5,
			Amount:    decimal.RequireFromString("61.2"),
			CreatedAt: createdAt,
			UserID:    7,
		},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO bid_events")).
		WithArgs(int64(42), int64(5), int64(7), "61.20", "newBid", createdAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, archive.SaveBidEvent(context.Background(), event))

	// a replayed bid is ignored by the unique key, not reported
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO bid_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, archive.SaveBidEvent(context.Background(), event))

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO bid_events")).
		WillReturnError(errors.New("connection refused"))
	err := archive.SaveBidEvent(context.Background(), event)
	require.ErrorContains(t, err, "save bid event 42/5")
}

func TestBidArchive_GetBidHistory(t *testing.T) {
	t.Parallel()
	archive, mock := newTestArchive(t)

	first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"auction_id", "bid_id", "user_id", "amount", "event_type", "timestamp"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM bid_events")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(42), int64(5), int64(7), "61.20", "newBid", first).
			AddRow(int64(42), int64(6), int64(8), "75.00", "newBid", first.Add(time.Minute)))

	events, err := archive.GetBidHistory(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, domain.NewBid, events[0].Type)
	require.Equal(t, int64(42), events[0].Bid.ItemID)
	require.Equal(t, int64(5), events[0].Bid.ID)
	require.Equal(t, int64(7), events[0].Bid.UserID)
	require.True(t, events[0].Bid.Amount.Equal(decimal.RequireFromString("61.2")))
	require.Equal(t, first, events[0].Bid.CreatedAt)
	require.Equal(t, int64(6), events[1].Bid.ID)
}

func TestBidArchive_GetBidHistoryBadAmount(t *testing.T) {
	t.Parallel()
	archive, mock := newTestArchive(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bid_events")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"auction_id", "bid_id", "user_id", "amount", "event_type", "timestamp"}).
			AddRow(int64(42), int64(5), int64(7), "lots", "newBid", time.Now()))

	_, err := archive.GetBidHistory(context.Background(), 42)
	require.ErrorContains(t, err, `bid 5 amount "lots"`)
}
