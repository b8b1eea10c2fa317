package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSentCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_sent_total",
		Help:      "Messages persisted by this instance.",
	})
	reactionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "reactions_total",
		Help:      "Reaction changes grouped by operation and result.",
	}, []string{"op", "result"})
	feedSubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "feed_subscribers",
		Help:      "Open change feed subscriptions on this instance.",
	})
	feedDroppedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "feed_dropped_total",
		Help:      "Feed subscribers dropped because they fell behind.",
	})
	notificationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "notifications_total",
		Help:      "Notifications handed to the broker grouped by result.",
	}, []string{"result"})
	rateLimitedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "rate_limited_total",
		Help:      "Writes rejected by the per account limiter.",
	})
)
