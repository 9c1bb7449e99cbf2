package middleware

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kbukum/npuflow/logger"
)

var quietPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// RequestLogger logs method, path, status, size and duration of every request
// except health probes. 5xx log at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			status := rec.Status()

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"size", humanize.IBytes(uint64(rec.written)),
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields["request_id"] = id
			}

			switch {
			case status >= 500:
				log.Error("request completed", fields)
			case status >= 400:
				log.Warn("request completed", fields)
			default:
				log.Debug("request completed", fields)
			}
		})
	}
}
