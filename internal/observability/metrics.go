package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
	reviewsRecordedTotal  *prometheus.CounterVec
	pointsAwardedTotal    *prometheus.CounterVec
	achievementsUnlocked  *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	realtimeClientsActive prometheus.Gauge
	dispatchDroppedTotal  *prometheus.CounterVec
	dispatchFailuresTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Committed submission stage transitions.",
		}, []string{"workflow", "from", "to", "mode"})

		reviewsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_recorded_total",
			Help: "Reviews recorded, by decision.",
		}, []string{"decision"})

		pointsAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Point ledger entries committed, by action type.",
		}, []string{"action"})

		achievementsUnlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Achievements unlocked, by key.",
		}, []string{"key"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications delivered to subscribers, by type.",
		}, []string{"type"})

		realtimeClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		dispatchDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_dropped_total",
			Help: "Post-commit side effects dropped because the queue was full.",
		}, []string{"job"})

		dispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Post-commit side effects that returned an error.",
		}, []string{"job"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			transitionsTotal,
			reviewsRecordedTotal,
			pointsAwardedTotal,
			achievementsUnlocked,
			notificationsTotal,
			realtimeClientsActive,
			dispatchDroppedTotal,
			dispatchFailuresTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Transitions exposes the stage transition counter.
func Transitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// ReviewsRecorded exposes the review counter.
func ReviewsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsRecordedTotal
}

// PointsAwarded exposes the ledger entry counter.
func PointsAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return pointsAwardedTotal
}

// AchievementsUnlocked exposes the achievement unlock counter.
func AchievementsUnlocked() *prometheus.CounterVec {
	RegisterMetrics()
	return achievementsUnlocked
}

// NotificationsPublishedTotal exposes the notification fan-out counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// RealtimeClientsActive exposes the connected stream gauge.
func RealtimeClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeClientsActive
}

// DispatchDropped exposes the dropped side effect counter.
func DispatchDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchDroppedTotal
}

// DispatchFailures exposes the failed side effect counter.
func DispatchFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchFailuresTotal
}
