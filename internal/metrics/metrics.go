package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Orders holds the order submission instruments. Each app gets its own registry
// so tests can build several apps in one process.
type Orders struct {
	registry  *prometheus.Registry
	submitted *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewOrders() *Orders {
	m := &Orders{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kiosk",
			Name:      "orders_submitted_total",
			Help:      "Orders committed, by channel.",
		}, []string{"channel"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kiosk",
			Name:      "orders_failed_total",
			Help:      "Order submissions rolled back or rejected, by channel and reason.",
		}, []string{"channel", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kiosk",
			Name:      "order_submit_duration_seconds",
			Help:      "Time spent in the order submission transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}

	m.registry.MustRegister(
		m.submitted,
		m.failed,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Orders) Observe(channel string, started time.Time, reason string) {
	m.duration.WithLabelValues(channel).Observe(time.Since(started).Seconds())
	if reason == "" {
		m.submitted.WithLabelValues(channel).Inc()
		return
	}
	m.failed.WithLabelValues(channel, reason).Inc()
}

func (m *Orders) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
