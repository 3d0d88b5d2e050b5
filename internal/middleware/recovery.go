package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/larder/larder/internal/handler"
	"github.com/larder/larder/internal/metrics"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic and returns a 500 JSON error.
func Recoverer(logger *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				// Let net/http abort the connection as it would without us.
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				recorder.IncPanicRecovered()
				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				handler.WriteError(w, http.StatusInternalServerError, handler.CodeInternal, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
