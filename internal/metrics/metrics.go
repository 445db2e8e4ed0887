package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts successfully persisted messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worklink_messages_sent_total",
		Help: "Messages persisted by the messaging service.",
	})

	// EventsBroadcast counts push events delivered to at least one socket.
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_events_broadcast_total",
		Help: "Push events delivered, by event type.",
	}, []string{"event"})

	// EventsDropped counts push events abandoned because the transport
	// failed. Delivery is best-effort, so these are expected under churn.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_events_dropped_total",
		Help: "Push events dropped on transport failure, by event type.",
	}, []string{"event"})
)
