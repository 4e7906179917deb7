package middleware

import (
	"net/http"
	apperrors "petsit/pkg/errors"
)

const HeaderActorID = "X-Actor-ID"

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	_, _ = w.Write(appErr.ToJSON())
}

// MaxRequestSize caps the request body. Decoders see an error once the limit
// is crossed.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeAppError(w, apperrors.New("REQUEST_TOO_LARGE", "Request body too large", http.StatusRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
