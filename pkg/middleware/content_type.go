package middleware

import (
	"mime"
	"net/http"

	apperrors "bookingguard/pkg/errors"
	httputil "bookingguard/pkg/http"
	"bookingguard/pkg/logger"
)

const CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"

// ContentTypeValidation rejects bodies on write methods that are not JSON.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresContentType(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				log.Warn("Invalid Content-Type header",
					"request_id", RequestID(r.Context()),
					"content_type", r.Header.Get("Content-Type"),
					"method", r.Method,
					"path", r.URL.Path,
				)
				appErr := apperrors.New(CodeUnsupportedMediaType, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				if writeErr := httputil.WriteError(w, appErr); writeErr != nil {
					log.Error("Failed to write content type rejection", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxRequestSize caps how much of a request body handlers can read.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}
