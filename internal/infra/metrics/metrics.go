package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_records_total",
		Help: "Сообщения, просмотренные при загрузке, по исходу",
	}, []string{"outcome"})

	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Длительность загрузки истории беседы",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	ReplicateItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replicate_items_total",
		Help: "Результаты репликации отобранных сообщений",
	}, []string{"outcome"})

	ReplicateFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replicate_fallback_total",
		Help: "Вложения, перезалитые после неудачной пересылки",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		IngestRecords,
		IngestDuration,
		ReplicateItems,
		ReplicateFallbacks,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// Target форматирует идентификатор беседы для метки target.
func Target(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// IncIngest увеличивает счётчик просмотренных сообщений.
func IncIngest(outcome string) {
	IngestRecords.WithLabelValues(outcome).Inc()
}

// IncReplicate увеличивает счётчик реплицированных позиций.
func IncReplicate(outcome string) {
	ReplicateItems.WithLabelValues(outcome).Inc()
}
