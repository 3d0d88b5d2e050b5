package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"json post", http.MethodPost, "application/json", http.StatusOK},
		{"json with charset", http.MethodPut, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing content type", http.MethodPut, "", http.StatusUnsupportedMediaType},
		{"text plain", http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{"get ignores content type", http.MethodGet, "", http.StatusOK},
		{"delete ignores content type", http.MethodDelete, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireJSON(okHandler())

			req := httptest.NewRequest(tt.method, "/api/recipes/", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnsupportedMediaType &&
				!strings.Contains(rec.Body.String(), "Content-Type must be application/json") {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}
