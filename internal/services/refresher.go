package services

import (
	"context"
	"sync"

	"auction-tracker/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Refreshable is what the refresher polls. *Tracker implements it.
type Refreshable interface {
	AuctionID() int64
	NeedsRefresh() bool
	Degraded() bool
	Resubscribe(ctx context.Context) error
	Refresh()
}

// CronRefresher keeps degraded trackers current by polling on a cron schedule
// and retrying their live channel subscription.
type CronRefresher struct {
	cron     *cron.Cron
	schedule string
	log      logger.Logger

	mu       sync.RWMutex
	trackers []Refreshable
}

func NewCronRefresher(schedule string, log logger.Logger) *CronRefresher {
	if schedule == "" {
		schedule = "@every 15s"
	}
	return &CronRefresher{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		log:      log,
	}
}

func (r *CronRefresher) Register(t Refreshable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers = append(r.trackers, t)
}

func (r *CronRefresher) Start(ctx context.Context) error {
	r.log.Info("Starting degraded-mode refresher", "schedule", r.schedule)

	_, err := r.cron.AddFunc(r.schedule, func() {
		r.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop waits for a running pass to finish.
func (r *CronRefresher) Stop() {
	r.log.Info("Stopping degraded-mode refresher")
	<-r.cron.Stop().Done()
}

// RunOnce refreshes every registered tracker that needs it and returns how
// many it refreshed.
func (r *CronRefresher) RunOnce(ctx context.Context) int {
	r.mu.RLock()
	trackers := append([]Refreshable(nil), r.trackers...)
	r.mu.RUnlock()

	refreshed := 0
	for _, t := range trackers {
		if !t.NeedsRefresh() {
			continue
		}
		if t.Degraded() {
			if err := t.Resubscribe(ctx); err != nil {
				r.log.Debug("Live channel still unavailable", "auction_id", t.AuctionID(), "error", err)
			}
		}
		t.Refresh()
		refreshed++
	}
	if refreshed > 0 {
		r.log.Info("Polled degraded trackers", "count", refreshed)
	}
	return refreshed
}
