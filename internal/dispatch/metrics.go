package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcast_delivered_total",
		Help: "Messages delivered by broadcast dispatch.",
	})
	deliveriesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcast_failed_total",
		Help: "Broadcast sends that failed and were skipped.",
	})
)
