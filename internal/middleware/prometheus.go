package middleware

import (
	"strconv"
	"strings"
	"time"

	"blog_app/internal/observability"

	"github.com/gin-gonic/gin"
)

// Route sections used as the "section" label of HTTP metrics.
const (
	SectionAuth      = "auth"
	SectionBlog      = "blog"
	SectionOps       = "ops"
	SectionUnmatched = "unmatched"
)

// RouteSection maps a gin route pattern to the part of the blog it serves:
// the /auth views, operational endpoints, or the post pages.
func RouteSection(route string) string {
	switch {
	case route == "":
		return SectionUnmatched
	case route == "/auth" || strings.HasPrefix(route, "/auth/"):
		return SectionAuth
	case route == "/health" || route == "/metrics":
		return SectionOps
	default:
		return SectionBlog
	}
}

// PrometheusMiddleware counts and times requests per route pattern, so
// /1/update and /2/update share one series.
func PrometheusMiddleware(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()

		c.Next()

		route := c.FullPath()
		section := RouteSection(route)
		if section == SectionUnmatched {
			// unmatched paths would otherwise grow the label set without bound
			route = SectionUnmatched
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(section, c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(section, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
