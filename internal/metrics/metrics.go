package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// emailsTotal counts transport attempts.
	// Labels:
	// - status: "sent" or "failed"
	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Name:      "emails_total",
			Help:      "Total number of outbound email attempts by result",
		},
		[]string{"status"},
	)

	// relayEventsTotal counts lifecycle events handed to the notification relay.
	// Labels:
	// - action: email_batch_started, email_sent, email_failed, batch_completed
	// - result: "delivered" or "failed"
	relayEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Name:      "relay_events_total",
			Help:      "Total number of lifecycle events relayed by result",
		},
		[]string{"action", "result"},
	)

	batchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Name:      "batches_total",
			Help:      "Total number of dispatched batches",
		},
	)

	// recordErrorsTotal counts store failures while persisting or resolving send records.
	// Labels:
	// - op: "create" or "update_status"
	recordErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of record store failures by operation",
		},
		[]string{"op"},
	)
)

// IncEmail increments the attempt counter for the given outcome status.
func IncEmail(status string) {
	if status == "" {
		status = "unknown"
	}
	emailsTotal.WithLabelValues(status).Inc()
}

// IncRelayEvent increments the relay counter for an action.
func IncRelayEvent(action string, delivered bool) {
	if action == "" {
		action = "unknown"
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	relayEventsTotal.WithLabelValues(action, result).Inc()
}

func IncBatch() {
	batchesTotal.Inc()
}

func IncRecordError(op string) {
	if op == "" {
		op = "unknown"
	}
	recordErrorsTotal.WithLabelValues(op).Inc()
}
