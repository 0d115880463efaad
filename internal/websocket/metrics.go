package websocket

import "github.com/prometheus/client_golang/prometheus"

// Reasons a feed subscriber leaves its room.
const (
	leftClosed   = "closed"
	leftSlow     = "slow"
	leftShutdown = "shutdown"
)

var (
	feedSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studio_feed_subscribers",
			Help: "Connected audit feed subscribers per channel.",
		},
		[]string{"channel"},
	)
	feedDepartures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_feed_departures_total",
			Help: "Audit feed subscribers that left a channel, by reason.",
		},
		[]string{"channel", "reason"},
	)
	feedRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_feed_events_relayed_total",
			Help: "Audit events taken from Redis and handed to the hub.",
		},
		[]string{"channel"},
	)
	feedDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_feed_deliveries_total",
			Help: "Audit events queued to individual subscribers.",
		},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(feedSubscribers, feedDepartures, feedRelayed, feedDelivered)
}

func subscriberJoined(channel string) {
	feedSubscribers.WithLabelValues(channel).Inc()
}

func subscriberLeft(channel, reason string) {
	feedSubscribers.WithLabelValues(channel).Dec()
	feedDepartures.WithLabelValues(channel, reason).Inc()
}

func eventRelayed(channel string) {
	feedRelayed.WithLabelValues(channel).Inc()
}

func eventsDelivered(channel string, count int) {
	feedDelivered.WithLabelValues(channel).Add(float64(count))
}
