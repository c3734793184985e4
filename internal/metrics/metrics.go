package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for the IPN endpoint and the HTTP surface.
var (
	IPNNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinbridge_ipn_notifications_total",
			Help: "Verified IPN notifications by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	IPNRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinbridge_ipn_rejections_total",
			Help: "IPN notifications rejected before reconciliation",
		},
		[]string{"reason"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinbridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinbridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		IPNNotificationsTotal,
		IPNRejectionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := c.Route().Path
		method := c.Method()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		return err
	}
}
