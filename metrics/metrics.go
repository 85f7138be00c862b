package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesRead - lines received from the server.
	LinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kxirc_lines_read_total",
		Help: "Total number of IRC lines received from the server",
	})

	// LinesWritten - lines sent to the server.
	LinesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kxirc_lines_written_total",
		Help: "Total number of IRC lines sent to the server",
	})

	// WriteFailures - writes that returned an error.
	WriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kxirc_write_failures_total",
		Help: "Total number of failed writes to the server",
	})

	// ChatMessages - chat messages published, by direction.
	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kxirc_chat_messages_total",
			Help: "Total number of chat messages published, by direction (in/out)",
		},
		[]string{"direction"},
	)

	// FeedDrops - items dropped because a subscriber was too slow.
	FeedDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kxirc_feed_drops_total",
			Help: "Total number of feed items dropped for slow subscribers, by feed",
		},
		[]string{"feed"},
	)

	// ConnectAttempts - connection attempts, by outcome.
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kxirc_connect_attempts_total",
			Help: "Total number of connection attempts, by outcome",
		},
		[]string{"outcome"},
	)

	// Connected - whether the client is registered on a server.
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kxirc_connected",
		Help: "Whether the client is connected and registered (1) or not (0)",
	})
)
