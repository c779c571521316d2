// Package metrics собирает метрики распределителя сессий и отдаёт их Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

const namespace = "matchmaker"

// Collector хранит счётчики Prometheus.
type Collector struct {
	joins             *prometheus.CounterVec
	joinConflicts     prometheus.Counter
	provisioned       prometheus.Counter
	provisionFailures prometheus.Counter
	provisionLatency  prometheus.Histogram
	sessionsEnded     prometheus.Counter
	feedbackRecords   prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_joins_total",
			Help:      "Запросы на участие по результату: created, joined, already_joined.",
		}, []string{"status"}),
		joinConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_join_conflicts_total",
			Help:      "Условные обновления, проигранные параллельному запросу.",
		}),
		provisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_provisioned_total",
			Help:      "Созданные встречи.",
		}),
		provisionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_provision_failures_total",
			Help:      "Неудачные попытки создать встречу.",
		}),
		provisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meeting_provision_seconds",
			Help:      "Время создания встречи.",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Завершённые сессии.",
		}),
		feedbackRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_records_total",
			Help:      "Сохранённые записи отзывов.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP-ответы по коду статуса.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.joins,
		c.joinConflicts,
		c.provisioned,
		c.provisionFailures,
		c.provisionLatency,
		c.sessionsEnded,
		c.feedbackRecords,
		c.httpStatus,
	)
	return c
}

// RecordJoin учитывает результат JoinOrCreate.
func (c *Collector) RecordJoin(status models.JoinStatus) {
	c.joins.WithLabelValues(string(status)).Inc()
}

// RecordJoinConflict учитывает повтор из-за параллельного изменения сессии.
func (c *Collector) RecordJoinConflict() {
	c.joinConflicts.Inc()
}

// RecordProvisioned учитывает созданную встречу.
func (c *Collector) RecordProvisioned(duration time.Duration) {
	c.provisioned.Inc()
	c.provisionLatency.Observe(duration.Seconds())
}

// RecordProvisionFailure учитывает неудачное создание встречи.
func (c *Collector) RecordProvisionFailure() {
	c.provisionFailures.Inc()
}

// RecordSessionEnded учитывает завершение сессии.
func (c *Collector) RecordSessionEnded() {
	c.sessionsEnded.Inc()
}

// RecordFeedback учитывает сохранённые записи отзывов.
func (c *Collector) RecordFeedback(count int) {
	c.feedbackRecords.Add(float64(count))
}

// Middleware считает ответы по коду статуса.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	})
}

// Handler возвращает HTTP-обработчик для сбора метрик Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
