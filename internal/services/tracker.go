package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/internal/metrics"
	"auction-tracker/pkg/logger"
)

type TrackerConfig struct {
	UserID       int64
	TickInterval time.Duration
	Now          func() time.Time
}

// Tracker keeps one auction's Projection current. Fetch results, pushed bids,
// submit results and clock ticks are all applied on a single run-loop
// goroutine per tracked auction.
type Tracker struct {
	api     domain.AuctionAPI
	channel domain.LiveChannel
	cache   domain.QueryCache
	fanout  *BidFanout
	metrics *metrics.Metrics
	log     logger.Logger

	userID       int64
	tickInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	session *session

	changes chan struct{}
}

func NewTracker(
	api domain.AuctionAPI,
	channel domain.LiveChannel,
	cache domain.QueryCache,
	fanout *BidFanout,
	m *metrics.Metrics,
	cfg TrackerConfig,
	log logger.Logger,
) *Tracker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Tracker{
		api:          api,
		channel:      channel,
		cache:        cache,
		fanout:       fanout,
		metrics:      m,
		log:          log,
		userID:       cfg.UserID,
		tickInterval: cfg.TickInterval,
		now:          cfg.Now,
		changes:      make(chan struct{}, 1),
	}
}

type session struct {
	auctionID int64
	ctx       context.Context
	cancel    context.CancelFunc

	events  chan Event
	refresh chan string
	done    chan struct{}

	loaded   chan struct{}
	loadOnce sync.Once

	token  string
	joined atomic.Bool
	joinMu sync.Mutex // orders room joins against teardown
	wg     sync.WaitGroup

	// run loop only
	proj          *Projection
	fetching      bool
	pendingReason string

	snapMu sync.RWMutex
	snap   Projection
}

func (s *session) post(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *session) snapshot() Projection {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap.Clone()
}

// StartTracking subscribes to auctionID and starts its clock. Calling it again
// with the same id is a no-op; a different id tears the previous one down first.
func (t *Tracker) StartTracking(ctx context.Context, auctionID int64) error {
	if auctionID <= 0 {
		return auctionerrors.Validation("StartTracking",
			fmt.Errorf("%w - invalid auction id %d", auctionerrors.ErrNotTracking, auctionID))
	}

	t.mu.Lock()
	if cur := t.session; cur != nil {
		if cur.auctionID == auctionID {
			t.mu.Unlock()
			return nil
		}
		t.stopLocked()
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		auctionID: auctionID,
		ctx:       sctx,
		cancel:    cancel,
		events:    make(chan Event, 16),
		refresh:   make(chan string, 1),
		done:      make(chan struct{}),
		loaded:    make(chan struct{}),
		proj:      NewProjection(auctionID),
	}
	s.snap = s.proj.Clone()

	s.token = t.channel.OnEvent(func(event *domain.BidEvent) {
		s.post(BidPushedEvent{Bid: event.Bid})
	})
	t.session = s
	go t.run(s)
	t.mu.Unlock()

	// dialing can take the whole handshake timeout; no tracker lock is held
	t.subscribe(ctx, s)

	t.log.Info("Tracking auction", "auction_id", auctionID, "live", s.joined.Load())
	return nil
}

// StopTracking leaves the room, drops the handler and stops the clock. When it
// returns no callback of the old session can touch state any more.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	s := t.session
	if s == nil {
		return
	}
	t.session = nil

	s.joinMu.Lock()
	s.cancel()
	joined := s.joined.Load()
	s.joinMu.Unlock()

	if joined {
		if err := t.channel.LeaveRoom(s.auctionID); err != nil {
			t.log.Debug("Leave room failed", "auction_id", s.auctionID, "error", err)
		}
	}
	t.channel.RemoveHandler(s.token)

	<-s.done
	s.wg.Wait()

	t.metrics.ChannelDegraded.Set(0)
	t.log.Info("Stopped tracking auction", "auction_id", s.auctionID)
}

// subscribe connects and joins the session's room. A session torn down while
// the dial was in flight is left alone.
func (t *Tracker) subscribe(ctx context.Context, s *session) {
	if err := t.channel.Connect(ctx); err != nil {
		t.log.Warn("Live channel unavailable, falling back to polling", "auction_id", s.auctionID, "error", err)
		if s.ctx.Err() == nil {
			t.metrics.ChannelDegraded.Set(1)
		}
		return
	}

	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if err := t.channel.JoinRoom(s.auctionID); err != nil {
		t.log.Warn("Join room failed, falling back to polling", "auction_id", s.auctionID, "error", err)
		t.metrics.ChannelDegraded.Set(1)
		return
	}
	s.joined.Store(true)
	t.metrics.ChannelDegraded.Set(0)
}

func (t *Tracker) current() *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// AuctionID is the tracked auction, or 0.
func (t *Tracker) AuctionID() int64 {
	if s := t.current(); s != nil {
		return s.auctionID
	}
	return 0
}

// Snapshot returns a copy of the current projection.
func (t *Tracker) Snapshot() (Projection, bool) {
	s := t.current()
	if s == nil {
		return Projection{}, false
	}
	return s.snapshot(), true
}

// Changes signals after every applied event. Signals coalesce.
func (t *Tracker) Changes() <-chan struct{} {
	return t.changes
}

// WaitLoaded blocks until the first fetch of the tracked auction completed.
func (t *Tracker) WaitLoaded(ctx context.Context) (Projection, error) {
	s := t.current()
	if s == nil {
		return Projection{}, auctionerrors.Validation("WaitLoaded", auctionerrors.ErrNotTracking)
	}

	select {
	case <-s.loaded:
	case <-ctx.Done():
		return Projection{}, ctx.Err()
	case <-s.ctx.Done():
		return Projection{}, auctionerrors.Validation("WaitLoaded", auctionerrors.ErrNotTracking)
	}

	snap := s.snapshot()
	if !snap.Loaded {
		return snap, snap.LastError
	}
	return snap, nil
}

// Refresh asks for an authoritative refetch. Requests coalesce.
func (t *Tracker) Refresh() {
	s := t.current()
	if s == nil {
		return
	}
	select {
	case s.refresh <- RefetchRefresh:
	default:
	}
}

// Degraded reports whether the tracked auction is only kept current by polling.
func (t *Tracker) Degraded() bool {
	s := t.current()
	if s == nil {
		return false
	}
	return !s.joined.Load() || !t.channel.Connected()
}

// NeedsRefresh reports whether polling has to cover for the live channel or for
// a first load that failed.
func (t *Tracker) NeedsRefresh() bool {
	s := t.current()
	if s == nil {
		return false
	}
	if t.Degraded() {
		return true
	}
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return !s.snap.Loaded
}

// Resubscribe retries the live channel for a degraded session.
func (t *Tracker) Resubscribe(ctx context.Context) error {
	s := t.current()
	if s == nil {
		return nil
	}
	if s.joined.Load() && t.channel.Connected() {
		return nil
	}

	s.joinMu.Lock()
	s.joined.Store(false)
	s.joinMu.Unlock()

	t.subscribe(ctx, s)
	if !s.joined.Load() {
		return auctionerrors.Channel("Resubscribe", auctionerrors.ErrChannelClosed)
	}
	t.log.Info("Live channel restored", "auction_id", s.auctionID)
	return nil
}

// SubmitBid validates amountText against the displayed state and forwards it.
// Nothing is sent when validation fails. A failed call leaves state unchanged.
func (t *Tracker) SubmitBid(ctx context.Context, amountText string) (*domain.Bid, error) {
	s := t.current()
	if s == nil {
		t.metrics.SubmitTotal.WithLabelValues("rejected").Inc()
		return nil, auctionerrors.Validation("SubmitBid", auctionerrors.ErrNotTracking)
	}

	snap := s.snapshot()
	amount, err := ValidateBidAmount(amountText, &snap)
	if err != nil {
		t.metrics.SubmitTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	bid, err := t.api.PlaceBid(ctx, domain.PlaceBidRequest{
		UserID: t.userID,
		ItemID: s.auctionID,
		Amount: amount,
	})
	s.post(SubmitResultEvent{Bid: bid, Err: err})

	if err != nil {
		t.metrics.SubmitTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("submit bid on %d: %w", s.auctionID, err)
	}

	t.metrics.SubmitTotal.WithLabelValues("accepted").Inc()
	t.log.Info("Bid submitted", "auction_id", s.auctionID, "amount", amount.StringFixed(2))
	return bid, nil
}

func (t *Tracker) run(s *session) {
	defer close(s.done)

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	t.seedFromCache(s)
	t.fetch(s, RefetchInitial)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			t.apply(s, TickEvent{Now: t.now()})
		case ev := <-s.events:
			t.apply(s, ev)
		case reason := <-s.refresh:
			t.fetch(s, reason)
		}
	}
}

func (t *Tracker) apply(s *session, ev Event) {
	writeThrough := false

	switch e := ev.(type) {
	case BidPushedEvent:
		result := "applied"
		switch {
		case s.proj.Foreign(e.Bid):
			result = "foreign"
		case s.proj.HasBid(e.Bid.ID):
			result = "duplicate"
		default:
			writeThrough = true
		}
		t.metrics.BidEventsTotal.WithLabelValues(result).Inc()
	case FetchResultEvent:
		s.fetching = false
		writeThrough = e.Err == nil
	}

	effects := s.proj.Apply(ev)
	t.publish(s)

	if _, ok := ev.(FetchResultEvent); ok {
		s.loadOnce.Do(func() { close(s.loaded) })
	}
	if writeThrough {
		t.writeThrough(s)
	}

	for _, effect := range effects {
		switch e := effect.(type) {
		case RefetchEffect:
			t.fetch(s, e.Reason)
		case CacheInvalidateEffect:
			if err := t.cache.Invalidate(s.ctx, e.Key); err != nil {
				t.log.Warn("Cache invalidate failed", "key", e.Key, "error", err)
			}
		case NewBidEffect:
			// listings show the headline, so a pushed bid outdates them too
			if err := t.cache.Invalidate(s.ctx, domain.AuctionListKey); err != nil {
				t.log.Warn("Cache invalidate failed", "key", domain.AuctionListKey, "error", err)
			}
			t.deliver(s, e.Bid)
		case ErrorEffect:
			t.log.Warn("Tracker operation failed", "auction_id", s.auctionID,
				"kind", auctionerrors.KindOf(e.Err).String(), "error", e.Err)
		}
	}

	if !s.fetching && s.pendingReason != "" {
		reason := s.pendingReason
		s.pendingReason = ""
		t.fetch(s, reason)
	}
}

// fetch starts one GetAuction. While one is in flight further requests
// collapse into a single follow-up.
func (t *Tracker) fetch(s *session, reason string) {
	if s.fetching {
		s.pendingReason = reason
		return
	}
	s.fetching = true
	t.metrics.RefetchTotal.WithLabelValues(reason).Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		start := time.Now()
		detail, err := t.api.GetAuction(s.ctx, s.auctionID)
		t.metrics.FetchLatencyMS.Observe(float64(time.Since(start).Milliseconds()))

		s.post(FetchResultEvent{Detail: detail, Err: err, Now: t.now()})
	}()
}

func (t *Tracker) deliver(s *session, bid domain.Bid) {
	if !t.fanout.Enabled() {
		return
	}
	event := &domain.BidEvent{
		Type:       domain.NewBid,
		AuctionID:  s.auctionID,
		Bid:        bid,
		ReceivedAt: t.now(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t.fanout.Deliver(s.ctx, event)
	}()
}

func (t *Tracker) seedFromCache(s *session) {
	var detail domain.AuctionDetail
	found, err := t.cache.Get(s.ctx, domain.AuctionKey(s.auctionID), &detail)
	if err != nil {
		t.log.Warn("Cache read failed", "auction_id", s.auctionID, "error", err)
		return
	}
	if !found {
		return
	}

	s.proj.Apply(FetchResultEvent{Detail: &detail, Now: t.now()})
	t.publish(s)
	t.log.Debug("Seeded projection from cache", "auction_id", s.auctionID)
}

func (t *Tracker) writeThrough(s *session) {
	if !s.proj.Loaded {
		return
	}
	if err := t.cache.Set(s.ctx, domain.AuctionKey(s.auctionID), s.proj.Detail()); err != nil {
		t.log.Warn("Cache write failed", "auction_id", s.auctionID, "error", err)
	}
}

func (t *Tracker) publish(s *session) {
	snap := s.proj.Clone()

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	select {
	case t.changes <- struct{}{}:
	default:
	}
}
