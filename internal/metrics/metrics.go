package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "loan_"

	ResultSuccess = "success"
	ResultError   = "error"

	ReminderOverdue  = "overdue"
	ReminderUpcoming = "upcoming"
)

var (
	registerOnce sync.Once

	scheduleGenerated *prometheus.CounterVec
	scheduleLatency   prometheus.Histogram
	paymentsRecorded  prometheus.Counter
	remindersSent     *prometheus.CounterVec
	overdueGauge      prometheus.Gauge
)

// Init registers the service metrics with the default registry.
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

// InitWith registers the service metrics once with reg.
func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		scheduleGenerated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "schedule_generated_total",
				Help: "Total schedule computations by result",
			},
			[]string{"result"},
		)
		scheduleLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "schedule_latency_seconds",
				Help:    "Schedule computation latency in seconds, including storage reads",
				Buckets: prometheus.DefBuckets,
			},
		)
		paymentsRecorded = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_recorded_total",
				Help: "Total payments recorded",
			},
		)
		remindersSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reminders_sent_total",
				Help: "Total installment reminders sent by kind",
			},
			[]string{"kind"},
		)
		overdueGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "overdue_installments",
				Help: "Overdue installments seen by the last reminder run",
			},
		)
		reg.MustRegister(scheduleGenerated, scheduleLatency, paymentsRecorded, remindersSent, overdueGauge)
	})
}

// ObserveSchedule records one schedule computation.
func ObserveSchedule(result string, started time.Time) {
	if scheduleGenerated == nil {
		return
	}
	scheduleGenerated.WithLabelValues(result).Inc()
	scheduleLatency.Observe(time.Since(started).Seconds())
}

// IncPaymentsRecorded counts a stored payment.
func IncPaymentsRecorded() {
	if paymentsRecorded == nil {
		return
	}
	paymentsRecorded.Inc()
}

// IncReminderSent counts a reminder of the given kind.
func IncReminderSent(kind string) {
	if remindersSent == nil {
		return
	}
	remindersSent.WithLabelValues(kind).Inc()
}

// SetOverdueInstallments publishes the overdue count of the last reminder run.
func SetOverdueInstallments(n int) {
	if overdueGauge == nil {
		return
	}
	overdueGauge.Set(float64(n))
}
