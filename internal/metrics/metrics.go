package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of notifications accepted by the email sender",
		},
		[]string{"template"},
	)

	notificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failed_total",
			Help: "Total number of notifications dropped after the last attempt",
		},
		[]string{"template", "reason"},
	)

	notificationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_retries_total",
			Help: "Total number of scheduled notification retries",
		},
		[]string{"template"},
	)

	retryInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_retry_inflight",
			Help: "Recipients with a pending notification retry",
		},
	)

	handlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_handler_failures_total",
			Help: "Total number of event handlers that returned an error or panicked",
		},
		[]string{"event"},
	)

	workerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_worker_messages_total",
			Help: "Messages consumed by the email worker by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordNotificationSent(template string) {
	notificationsSent.WithLabelValues(template).Inc()
}

// RecordNotificationFailed counts a dropped notification; reason is "permanent" or "exhausted".
func RecordNotificationFailed(template, reason string) {
	notificationsFailed.WithLabelValues(template, reason).Inc()
}

func RecordNotificationRetry(template string) {
	notificationRetries.WithLabelValues(template).Inc()
}

func SetRetryInflight(n int) {
	retryInflight.Set(float64(n))
}

func RecordHandlerFailure(event string) {
	handlerFailures.WithLabelValues(event).Inc()
}

// RecordWorkerMessage counts an email worker outcome: sent, duplicate, requeued, dropped.
func RecordWorkerMessage(outcome string) {
	workerMessages.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
