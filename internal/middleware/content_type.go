package middleware

import (
	"mime"
	"net/http"

	"github.com/larder/larder/internal/handler"
)

// RequireJSON rejects POST, PUT and PATCH requests whose Content-Type is not
// application/json with 415.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				handler.WriteError(w, http.StatusUnsupportedMediaType, handler.CodeUnsupportedMediaType,
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
