package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexchat",
			Name:      "message_submissions_total",
			Help:      "Message submissions entering the delivery pipeline.",
		},
		[]string{"outcome"},
	)

	pushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexchat",
			Name:      "deliveries_total",
			Help:      "Real-time pushes attempted, by result.",
		},
		[]string{"result"}, // delivered | miss | error
	)

	readReceiptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexchat",
			Name:      "read_receipts_total",
			Help:      "Read-receipt propagations performed.",
		},
	)
)
