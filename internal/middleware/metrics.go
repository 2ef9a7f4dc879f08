package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProjectionFailures counts index projection attempts that were logged and
// swallowed. Labels: entity (collection name), op (project|deproject).
var ProjectionFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "index_projection_failures_total",
		Help: "Number of best-effort index projections that failed.",
	},
	[]string{"entity", "op"},
)

// IndexQueryErrors counts read-path index failures, which surface to callers
// as 500s since paginated reads have no canonical fallback.
var IndexQueryErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "index_query_errors_total",
		Help: "Number of failed secondary-index queries.",
	},
	[]string{"query"},
)

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the shared HTTP metrics middleware. The underlying
// collectors register against the default registry, so initialization happens
// exactly once per process even when multiple servers are constructed (tests).
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.New(serviceName)
	})
	return promMW
}

// MetricsMiddleware adapts the prometheus middleware into a fiber handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
