package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexchat_client",
			Name:      "sends_total",
			Help:      "Message submissions by outcome.",
		},
		[]string{"outcome"},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexchat_client",
			Name:      "reconnects_total",
			Help:      "Websocket reconnect attempts.",
		},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexchat_client",
			Name:      "events_total",
			Help:      "Server events received by type.",
		},
		[]string{"type"},
	)
)
