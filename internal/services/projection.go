package services

import (
	"time"

	"auction-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// Event is one input to Projection.Apply.
type Event interface{ isEvent() }

type TickEvent struct {
	Now time.Time
}

type FetchResultEvent struct {
	Detail *domain.AuctionDetail
	Err    error
	Now    time.Time
}

type BidPushedEvent struct {
	Bid domain.Bid
}

type SubmitResultEvent struct {
	Bid *domain.Bid
	Err error
}

func (TickEvent) isEvent()         {}
func (FetchResultEvent) isEvent()  {}
func (BidPushedEvent) isEvent()    {}
func (SubmitResultEvent) isEvent() {}

// Effect is work the owner of a Projection must carry out after Apply.
type Effect interface{ isEffect() }

type RefetchEffect struct {
	Reason string
}

type NewBidEffect struct {
	Bid domain.Bid
}

type ErrorEffect struct {
	Err error
}

type CacheInvalidateEffect struct {
	Key string
}

func (RefetchEffect) isEffect()         {}
func (NewBidEffect) isEffect()          {}
func (ErrorEffect) isEffect()           {}
func (CacheInvalidateEffect) isEffect() {}

const (
	RefetchInitial = "initial"
	RefetchEnded   = "ended"
	RefetchSubmit  = "submit"
	RefetchRefresh = "refresh"
)

// Countdown is a remaining duration split into display units.
type Countdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

func CountdownFrom(remaining time.Duration) Countdown {
	if remaining <= 0 {
		return Countdown{}
	}
	ms := remaining.Milliseconds()
	return Countdown{
		Days:    ms / 86_400_000,
		Hours:   (ms / 3_600_000) % 24,
		Minutes: (ms / 60_000) % 60,
		Seconds: (ms / 1000) % 60,
	}
}

// Projection is the client-side view of one auction. It is only ever mutated
// through Apply, from a single goroutine.
type Projection struct {
	AuctionID int64
	Loaded    bool

	Auction domain.Auction
	Bids    []domain.Bid // newest first

	ServerStatus        domain.AuctionStatus
	ServerTimeRemaining int64 // ms, as last reported; not used for the countdown

	TotalDuration time.Duration // fixed at first load
	Remaining     time.Duration
	Countdown     Countdown
	Status        domain.AuctionStatus

	LastError error

	endRefetched bool
	seen         map[int64]struct{}
}

func NewProjection(auctionID int64) *Projection {
	return &Projection{
		AuctionID: auctionID,
		seen:      make(map[int64]struct{}),
	}
}

func (p *Projection) Apply(ev Event) []Effect {
	switch e := ev.(type) {
	case TickEvent:
		return p.tick(e.Now)
	case FetchResultEvent:
		return p.applyFetch(e)
	case BidPushedEvent:
		return p.applyBid(e.Bid)
	case SubmitResultEvent:
		if e.Err != nil {
			return []Effect{ErrorEffect{Err: e.Err}}
		}
		return []Effect{
			CacheInvalidateEffect{Key: domain.AuctionKey(p.AuctionID)},
			CacheInvalidateEffect{Key: domain.AuctionListKey},
			RefetchEffect{Reason: RefetchSubmit},
		}
	}
	return nil
}

// HasBid reports whether a bid with this id is already in the history.
func (p *Projection) HasBid(id int64) bool {
	_, ok := p.seen[id]
	return ok
}

// Foreign reports whether bid names a different auction than this one.
func (p *Projection) Foreign(bid domain.Bid) bool {
	return bid.ItemID != 0 && bid.ItemID != p.AuctionID
}

func (p *Projection) Headline() decimal.Decimal {
	return p.Auction.CurrentHighestBid
}

// RemainingPercent is remaining/total as a percentage in [0, 100].
func (p *Projection) RemainingPercent() float64 {
	if p.TotalDuration <= 0 || p.Remaining <= 0 {
		return 0
	}
	pct := float64(p.Remaining) / float64(p.TotalDuration) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func (p *Projection) Active() bool {
	return p.Loaded && p.Status == domain.AuctionActive
}

func (p *Projection) tick(now time.Time) []Effect {
	if !p.Loaded {
		return nil
	}

	p.updateRemaining(now)
	if p.Remaining > 0 || p.endRefetched {
		return nil
	}
	p.endRefetched = true
	return []Effect{RefetchEffect{Reason: RefetchEnded}}
}

func (p *Projection) updateRemaining(now time.Time) {
	remaining := p.Auction.AuctionEndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	p.Remaining = remaining
	p.Countdown = CountdownFrom(remaining)

	if remaining == 0 || p.ServerStatus == domain.AuctionEnded {
		p.Status = domain.AuctionEnded
	} else {
		p.Status = domain.AuctionActive
	}
}

func (p *Projection) applyFetch(e FetchResultEvent) []Effect {
	if e.Err != nil {
		p.LastError = e.Err
		return []Effect{ErrorEffect{Err: e.Err}}
	}
	if e.Detail == nil {
		return nil
	}
	d := e.Detail

	if !p.Loaded {
		p.TotalDuration = d.AuctionEndTime.Sub(d.CreatedAt)
		if p.TotalDuration < 0 {
			p.TotalDuration = 0
		}
		p.endRefetched = d.Status == domain.AuctionEnded
	} else if d.AuctionEndTime.After(p.Auction.AuctionEndTime) && d.Status == domain.AuctionActive {
		p.endRefetched = false
	}

	fetched := make(map[int64]struct{}, len(d.Bids))
	for _, b := range d.Bids {
		fetched[b.ID] = struct{}{}
	}

	// Pushed bids the fetch has not caught up with yet.
	var kept []domain.Bid
	headline := d.CurrentHighestBid
	for _, b := range p.Bids {
		if _, ok := fetched[b.ID]; ok {
			continue
		}
		kept = append(kept, b)
		if b.Amount.GreaterThan(headline) {
			headline = b.Amount
		}
	}

	bids := make([]domain.Bid, 0, len(kept)+len(d.Bids))
	bids = append(bids, kept...)
	bids = append(bids, d.Bids...)

	p.Auction = d.Auction
	p.Auction.CurrentHighestBid = headline
	p.Bids = bids
	p.seen = make(map[int64]struct{}, len(bids))
	for _, b := range bids {
		p.seen[b.ID] = struct{}{}
	}

	p.ServerStatus = d.Status
	p.ServerTimeRemaining = d.TimeRemaining
	p.LastError = nil
	p.Loaded = true
	p.updateRemaining(e.Now)

	return nil
}

func (p *Projection) applyBid(bid domain.Bid) []Effect {
	if p.Foreign(bid) || p.HasBid(bid.ID) {
		return nil
	}
	if p.seen == nil {
		p.seen = make(map[int64]struct{})
	}

	p.Bids = append([]domain.Bid{bid}, p.Bids...)
	p.seen[bid.ID] = struct{}{}

	if bid.Amount.GreaterThan(p.Auction.CurrentHighestBid) {
		p.Auction.CurrentHighestBid = bid.Amount
	}
	return []Effect{NewBidEffect{Bid: bid}}
}

// Clone returns a copy that shares nothing mutable with p.
func (p *Projection) Clone() Projection {
	c := *p
	c.Bids = append([]domain.Bid(nil), p.Bids...)
	c.seen = make(map[int64]struct{}, len(p.seen))
	for id := range p.seen {
		c.seen[id] = struct{}{}
	}
	return c
}

// Detail renders the projection in the shape the cache stores.
func (p *Projection) Detail() domain.AuctionDetail {
	return domain.AuctionDetail{
		Auction:       p.Auction,
		Bids:          append([]domain.Bid(nil), p.Bids...),
		TimeRemaining: p.Remaining.Milliseconds(),
		Status:        p.Status,
	}
}
