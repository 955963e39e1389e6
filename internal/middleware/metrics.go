package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActiveWebSockets tracks open event stream connections.
var ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "guestpost_active_websockets",
	Help: "Number of currently open websocket connections",
})

var (
	metricsOnce sync.Once
	httpMetrics *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the HTTP metrics collector for serviceName.
// Collectors are registered once per process; later calls return the same instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	metricsOnce.Do(func() {
		httpMetrics = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, serviceName, "guestpost", "http", nil)
	})
	return httpMetrics
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := prom.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
