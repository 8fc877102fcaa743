package services

import (
	"errors"
	"testing"
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bid(id int64, amount string) domain.Bid {
	return domain.Bid{
		ID:        id,
		Amount:    money(amount),
		CreatedAt: base.Add(time.Duration(id) * time.Second),
		UserID:    id,
		Username:  "user",
	}
}

func detail(id int64, headline string, end time.Time, bids ...domain.Bid) *domain.AuctionDetail {
	status := domain.AuctionActive
	if !end.After(base) {
		status = domain.AuctionEnded
	}
	return &domain.AuctionDetail{
		Auction: domain.Auction{
			ID:                id,
			Name:              "Vintage Camera",
			StartingPrice:     money("50.00"),
			CurrentHighestBid: money(headline),
			CreatedAt:         base.Add(-time.Hour),
			AuctionEndTime:    end,
		},
		Bids:   bids,
		Status: status,
	}
}

func loaded(t *testing.T, d *domain.AuctionDetail) *Projection {
	t.Helper()
	p := NewProjection(d.ID)
	require.Empty(t, p.Apply(FetchResultEvent{Detail: d, Now: base}))
	require.True(t, p.Loaded)
	return p
}

func bidIDs(bids []domain.Bid) []int64 {
	ids := make([]int64, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestProjection_FetchThenPushScenario(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Hour), bid(1, "50.00")))
	require.True(t, p.Headline().Equal(money("50.00")))

	effects := p.Apply(BidPushedEvent{Bid: bid(2, "55.00")})
	require.Len(t, effects, 1)
	require.IsType(t, NewBidEffect{}, effects[0])
	require.Equal(t, []int64{2, 1}, bidIDs(p.Bids))
	require.True(t, p.Headline().Equal(money("55.00")))

	effects = p.Apply(BidPushedEvent{Bid: bid(2, "55.00")})
	require.Empty(t, effects)
	require.Equal(t, []int64{2, 1}, bidIDs(p.Bids))
	require.True(t, p.Headline().Equal(money("55.00")))
}

func TestProjection_PushIsIdempotent(t *testing.T) {
	t.Parallel()

	events := []domain.Bid{bid(3, "60.00"), bid(4, "70.00"), bid(5, "65.00")}

	once := loaded(t, detail(1, "50.00", base.Add(time.Hour)))
	twice := loaded(t, detail(1, "50.00", base.Add(time.Hour)))
	for _, b := range events {
		once.Apply(BidPushedEvent{Bid: b})
		twice.Apply(BidPushedEvent{Bid: b})
		twice.Apply(BidPushedEvent{Bid: b})
	}

	require.Equal(t, once.Bids, twice.Bids)
	require.True(t, once.Headline().Equal(twice.Headline()))
}

func TestProjection_HeadlineNeverRegresses(t *testing.T) {
	t.Parallel()

	orders := [][]domain.Bid{
		{bid(2, "55.00"), bid(3, "60.00"), bid(4, "58.00")},
		{bid(4, "58.00"), bid(3, "60.00"), bid(2, "55.00")},
		{bid(3, "60.00"), bid(2, "55.00"), bid(4, "58.00")},
	}

	for _, order := range orders {
		p := loaded(t, detail(1, "50.00", base.Add(time.Hour)))
		prev := p.Headline()
		for _, b := range order {
			p.Apply(BidPushedEvent{Bid: b})
			require.False(t, p.Headline().LessThan(prev), "headline went from %s to %s", prev, p.Headline())
			prev = p.Headline()
		}
		require.True(t, p.Headline().Equal(money("60.00")))
		require.Len(t, p.Bids, 3)
		// history keeps arrival order, not amount order
		require.Equal(t, order[2].ID, p.Bids[0].ID)
	}
}

func TestProjection_ForeignBidIgnored(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Hour)))
	other := bid(9, "500.00")
	other.ItemID = 2

	require.True(t, p.Foreign(other))
	require.Empty(t, p.Apply(BidPushedEvent{Bid: other}))
	require.Empty(t, p.Bids)
	require.True(t, p.Headline().Equal(money("50.00")))

	mine := bid(10, "51.00")
	mine.ItemID = 1
	require.Len(t, p.Apply(BidPushedEvent{Bid: mine}), 1)
}

func TestCountdownFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		remaining time.Duration
		want      Countdown
	}{
		{name: "one of each", remaining: 90_061_000 * time.Millisecond, want: Countdown{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}},
		{name: "sub-second truncates", remaining: 999 * time.Millisecond, want: Countdown{}},
		{name: "just under a day", remaining: 24*time.Hour - time.Second, want: Countdown{Hours: 23, Minutes: 59, Seconds: 59}},
		{name: "several days", remaining: 3*24*time.Hour + 5*time.Minute, want: Countdown{Days: 3, Minutes: 5}},
		{name: "negative clamps", remaining: -time.Hour, want: Countdown{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CountdownFrom(tt.remaining))
		})
	}
}

func TestProjection_TickDecomposes(t *testing.T) {
	t.Parallel()

	end := base.Add(90_061_000 * time.Millisecond)
	p := loaded(t, detail(1, "50.00", end))

	p.Apply(TickEvent{Now: base})
	require.Equal(t, Countdown{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, p.Countdown)
	require.Equal(t, domain.AuctionActive, p.Status)
}

func TestProjection_TickClampsPastEnd(t *testing.T) {
	t.Parallel()

	d := detail(1, "50.00", base.Add(-time.Minute))
	p := loaded(t, d)

	for i := 0; i < 3; i++ {
		p.Apply(TickEvent{Now: base.Add(time.Duration(i) * time.Second)})
		require.Equal(t, Countdown{}, p.Countdown)
		require.Equal(t, time.Duration(0), p.Remaining)
		require.Equal(t, 0.0, p.RemainingPercent())
		require.Equal(t, domain.AuctionEnded, p.Status)
	}
}

func TestProjection_EndTriggersOneRefetch(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(2*time.Second)))

	require.Empty(t, p.Apply(TickEvent{Now: base.Add(time.Second)}))

	effects := p.Apply(TickEvent{Now: base.Add(2 * time.Second)})
	require.Equal(t, []Effect{RefetchEffect{Reason: RefetchEnded}}, effects)
	require.Equal(t, domain.AuctionEnded, p.Status)

	for i := 3; i < 6; i++ {
		require.Empty(t, p.Apply(TickEvent{Now: base.Add(time.Duration(i) * time.Second)}))
	}
}

func TestProjection_ExtendedEndRearmsRefetch(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Second)))
	require.Len(t, p.Apply(TickEvent{Now: base.Add(time.Second)}), 1)

	extended := detail(1, "50.00", base.Add(time.Minute))
	extended.Status = domain.AuctionActive
	p.Apply(FetchResultEvent{Detail: extended, Now: base.Add(time.Second)})
	require.Equal(t, domain.AuctionActive, p.Status)

	require.Len(t, p.Apply(TickEvent{Now: base.Add(time.Minute)}), 1)
}

func TestProjection_AlreadyEndedDoesNotRefetch(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(-time.Hour)))
	require.Empty(t, p.Apply(TickEvent{Now: base}))
}

func TestProjection_RemainingPercent(t *testing.T) {
	t.Parallel()

	// created an hour ago, ends in an hour
	p := loaded(t, detail(1, "50.00", base.Add(time.Hour)))
	require.Equal(t, 2*time.Hour, p.TotalDuration)
	require.InDelta(t, 50.0, p.RemainingPercent(), 0.001)

	p.Apply(TickEvent{Now: base.Add(30 * time.Minute)})
	require.InDelta(t, 25.0, p.RemainingPercent(), 0.001)

	// a later fetch with a moved end time keeps the original denominator
	later := detail(1, "50.00", base.Add(3*time.Hour))
	later.CreatedAt = base
	p.Apply(FetchResultEvent{Detail: later, Now: base.Add(30 * time.Minute)})
	require.Equal(t, 2*time.Hour, p.TotalDuration)
	require.Equal(t, 100.0, p.RemainingPercent())
}

func TestProjection_FetchKeepsPushedBids(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Hour), bid(1, "50.00")))
	p.Apply(BidPushedEvent{Bid: bid(2, "55.00")})
	p.Apply(BidPushedEvent{Bid: bid(3, "57.00")})

	// a stale fetch that only knows about bid 2
	stale := detail(1, "55.00", base.Add(time.Hour), bid(2, "55.00"), bid(1, "50.00"))
	p.Apply(FetchResultEvent{Detail: stale, Now: base})

	require.Equal(t, []int64{3, 2, 1}, bidIDs(p.Bids))
	require.True(t, p.Headline().Equal(money("57.00")))

	// a duplicate push after the fetch is still a no-op
	require.Empty(t, p.Apply(BidPushedEvent{Bid: bid(2, "55.00")}))
	require.Len(t, p.Bids, 3)
}

func TestProjection_FetchErrorKeepsState(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Hour), bid(1, "50.00")))
	boom := errors.New("boom")

	effects := p.Apply(FetchResultEvent{Err: boom, Now: base})
	require.Equal(t, []Effect{ErrorEffect{Err: boom}}, effects)
	require.Equal(t, []int64{1}, bidIDs(p.Bids))
	require.ErrorIs(t, p.LastError, boom)
}

func TestProjection_SubmitResult(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(7, "50.00", base.Add(time.Hour)))
	placed := bid(2, "60.00")

	effects := p.Apply(SubmitResultEvent{Bid: &placed})
	require.Equal(t, []Effect{
		CacheInvalidateEffect{Key: "auction:7"},
		CacheInvalidateEffect{Key: "auctions"},
		RefetchEffect{Reason: RefetchSubmit},
	}, effects)
	// the bid itself arrives through the refetch or the channel
	require.Empty(t, p.Bids)

	boom := errors.New("boom")
	require.Equal(t, []Effect{ErrorEffect{Err: boom}}, p.Apply(SubmitResultEvent{Err: boom}))
	require.True(t, p.Headline().Equal(money("50.00")))
}

func TestProjection_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := loaded(t, detail(1, "50.00", base.Add(time.Hour), bid(1, "50.00")))
	c := p.Clone()

	p.Apply(BidPushedEvent{Bid: bid(2, "55.00")})
	require.Len(t, c.Bids, 1)
	require.False(t, c.HasBid(2))
	require.True(t, c.Headline().Equal(money("50.00")))
}
