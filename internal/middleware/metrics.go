package middleware

import (
	"net/http"
	"strconv"

	"medipal/internal/platform/metrics"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Metrics cuenta requests por método y status.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		})
	}
}
