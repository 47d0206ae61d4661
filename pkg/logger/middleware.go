package logger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/screwyprof/daodelegate/pkg/httpkit"
)

// NewMiddleware creates HTTP request logging middleware.
// 5xx responses, upstream 502s included, are logged at error level.
func NewMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// in case httpkit.HandlerFunc wasn't used
			r = r.WithContext(httpkit.WithErrorTracking(r.Context()))
			bytesIn := max(0, int(r.ContentLength))

			rw := httpkit.NewStatusRecorder(w)
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if rw.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("route", httpkit.Route(r)),
				slog.Int("status", rw.Status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes_in", bytesIn),
				slog.Int("bytes_out", rw.BytesOut),
			}
			if err := httpkit.Error(r.Context()); err != nil {
				attrs = append(attrs, slog.String("error", errorMessage(err)))
			}

			logger.LogAttrs(r.Context(), level, "HTTP", attrs...)
		})
	}
}

// errorMessage prefers the detailed cause over the user-facing message
func errorMessage(err error) string {
	var httpErr httpkit.HTTPError
	if errors.As(err, &httpErr) && httpErr.Cause() != nil {
		return httpErr.Cause().Error()
	}
	return err.Error()
}
