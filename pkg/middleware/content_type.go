package middleware

import (
	"mime"
	"net/http"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/logger"
)

func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				log.Warn("Invalid Content-Type header",
					"request_id", requestIDFrom(r),
					"content_type", r.Header.Get("Content-Type"),
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeAppError(w, apperrors.New("UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Bodiless POSTs (e.g. confirm) are allowed without a Content-Type.
func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}
