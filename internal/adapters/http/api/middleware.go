package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/farbklang/pkg/metrics"
)

// MetricsMiddleware records request count and latency per endpoint, and for
// error answers the error code written by writeError.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsedMs := metrics.SinceMs(start)
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsedMs)

		if rec.status < http.StatusBadRequest {
			return
		}
		code := rec.code
		if code == "" {
			code = "http_" + status
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, code)
		metrics.RecordErrorByType(code, severity(rec.status))
	}
}

// severity ranks an error answer: server faults are high, a full save queue
// is medium, everything the client can fix is low.
func severity(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "high"
	case status == http.StatusTooManyRequests:
		return "medium"
	default:
		return "low"
	}
}

// statusRecorder captures the status and error code of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
