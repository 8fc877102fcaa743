package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
)

// fakeChannel is an in-process LiveChannel whose pushes are driven by the test.
type fakeChannel struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	handler    domain.BidEventHandler
	token      string
	tokens     int
	joined     []int64
	left       []int64

	// connectGate, when set, holds Connect until it is closed.
	connectGate chan struct{}
	blocked     int
}

func (f *fakeChannel) Connect(ctx context.Context) error {
	f.mu.Lock()
	gate := f.connectGate
	if gate != nil {
		f.blocked++
		f.mu.Unlock()
		select {
		case <-gate:
		case <-ctx.Done():
		}
		f.mu.Lock()
		f.blocked--
	}
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return auctionerrors.Channel("Connect", err)
	}
	if f.connectErr != nil {
		return auctionerrors.Channel("Connect", f.connectErr)
	}
	f.connected = true
	return nil
}

func (f *fakeChannel) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) JoinRoom(auctionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return auctionerrors.Channel("JoinRoom", auctionerrors.ErrChannelClosed)
	}
	f.joined = append(f.joined, auctionID)
	return nil
}

func (f *fakeChannel) LeaveRoom(auctionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, auctionID)
	return nil
}

func (f *fakeChannel) OnEvent(handler domain.BidEventHandler) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens++
	f.handler = handler
	f.token = fmt.Sprintf("token-%d", f.tokens)
	return f.token
}

func (f *fakeChannel) RemoveHandler(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == token {
		f.handler = nil
		f.token = ""
	}
}

func (f *fakeChannel) currentHandler() domain.BidEventHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

// push delivers bid the way the websocket reader would. It reports whether a
// handler was registered.
func (f *fakeChannel) push(bid domain.Bid) bool {
	handler := f.currentHandler()
	if handler == nil {
		return false
	}
	handler(&domain.BidEvent{Type: domain.NewBid, AuctionID: bid.ItemID, Bid: bid, ReceivedAt: time.Now()})
	return true
}

func (f *fakeChannel) setConnectErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
	if err != nil {
		f.connected = false
	}
}

// blockConnect makes every Connect wait until release is called.
func (f *fakeChannel) blockConnect() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.connectGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.connectGate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// dialing reports whether a Connect is parked on the gate.
func (f *fakeChannel) dialing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked > 0
}

func (f *fakeChannel) rooms() (joined, left []int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.joined...), append([]int64(nil), f.left...)
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	calls int
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
