package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lostfound/metrics"
)

// PageViewRecorder counts successful page views per route template.
func PageViewRecorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only record successful page views (2xx) for GET requests.
		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		// The route template keeps /item/:id to one series.
		route := c.FullPath()
		if route == "" || route == "/ping" || route == "/metrics" ||
			strings.HasPrefix(route, "/api/") || strings.HasPrefix(route, "/assets") ||
			strings.HasPrefix(route, "/static/") {
			return
		}
		metrics.PageViewsTotal.WithLabelValues(route).Inc()
	}
}
