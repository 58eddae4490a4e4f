package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"daily-catalog/internal/logger"
)

// RequestIDHeader carries the per-request id in both directions
const RequestIDHeader = "X-Request-ID"

type logOptions struct {
	skips map[string]struct{}
}

// LogOption configures LogRequests
type LogOption func(*logOptions)

// WithSkips disables logging for exact request paths
func WithSkips(paths ...string) LogOption {
	return func(o *logOptions) {
		for _, p := range paths {
			o.skips[p] = struct{}{}
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// LogRequests logs one line per request and tags it with a request id
func LogRequests(opts ...LogOption) func(http.Handler) http.Handler {
	o := &logOptions{skips: map[string]struct{}{}}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			if _, skip := o.skips[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			logger.Infof("%s %s %d %dB %s id=%s",
				r.Method, r.URL.RequestURI(), rec.status, rec.bytes, time.Since(start), reqID)
		})
	}
}

// OfflineGate answers 503 while offline() is true, except for health checks
func OfflineGate(offline func() bool, allow ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, p := range allow {
		allowed[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if offline() {
				http.Error(w, "service temporarily offline", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
