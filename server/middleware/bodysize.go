package middleware

import (
	"net/http"

	"github.com/dustin/go-humanize"
)

const defaultMaxBodySize = 64 << 20

// ParseSize parses sizes such as "64MB" or "512KiB", returning fallback for
// an empty or malformed value.
func ParseSize(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := humanize.ParseBytes(s)
	if err != nil || n == 0 {
		return fallback
	}
	return int64(n)
}

// BodySizeLimit caps request bodies at maxSize. Batches carry raw frames,
// so the default is 64MB.
func BodySizeLimit(maxSize string) Middleware {
	size := ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
