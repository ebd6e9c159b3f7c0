package middleware

import (
	"net/http"
	"runtime/debug"

	"log/slog"
)

// Recover перехватывает panic и возвращает 500, не падая процессом.
// Стек уходит только в логи, клиент видит голый статус.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						slog.Any("error", rec),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())))
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
