package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// Logging writes one debug line per round trip.
func Logging(log *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		return next
	}
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get(RequestIDHeader)),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			log.Warn("api request failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		log.Debug("api request", append(fields, zap.Int("status", resp.StatusCode))...)
		return resp, nil
	})
}
