package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	BidEventsTotal *prometheus.CounterVec // result=applied|duplicate|foreign
	RefetchTotal   *prometheus.CounterVec // reason=initial|ended|submit|refresh|error
	SubmitTotal    *prometheus.CounterVec // result=accepted|rejected|failed

	FetchLatencyMS prometheus.Histogram

	ChannelDegraded prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BidEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_bid_events_total",
				Help: "Pushed bid events by outcome",
			},
			[]string{"result"},
		),
		RefetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_refetch_total",
				Help: "Full auction fetches by reason",
			},
			[]string{"reason"},
		),
		SubmitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_submit_total",
				Help: "Bid submissions by result",
			},
			[]string{"result"},
		),
		FetchLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_fetch_latency_ms",
			Help:    "Latency of full auction fetches (ms)",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5ms .. ~2.5s
		}),
		ChannelDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_channel_degraded",
			Help: "1 while the tracked auction has no live channel subscription",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BidEventsTotal,
			m.RefetchTotal,
			m.SubmitTotal,
			m.FetchLatencyMS,
			m.ChannelDegraded,
		)
	}

	return m
}
