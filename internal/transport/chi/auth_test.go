package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{name: "no keys", path: "/v1/indexes/a/mapping", want: http.StatusOK},
		{name: "blank keys", keys: []string{"", ""}, path: "/v1/indexes/a/mapping", want: http.StatusOK},
		{name: "missing header", keys: []string{"secret"}, path: "/v1/indexes/a/mapping", want: http.StatusUnauthorized},
		{
			name: "basic scheme", keys: []string{"secret"}, path: "/v1/indexes/a/mapping",
			header: "Basic dXNlcjpwYXNz", want: http.StatusUnauthorized,
		},
		{
			name: "wrong key", keys: []string{"secret"}, path: "/v1/indexes/a/mapping",
			header: "Bearer wrong", want: http.StatusUnauthorized,
		},
		{
			name: "second key", keys: []string{"k1", "k2"}, path: "/v1/indexes/a/mapping",
			header: "Bearer k2", want: http.StatusOK,
		},
		{
			name: "lowercase scheme", keys: []string{"secret"}, path: "/v1/indexes/a/mapping",
			header: "bearer secret", want: http.StatusOK,
		},
		{
			name: "empty token", keys: []string{"secret"}, path: "/v1/indexes/a/mapping",
			header: "Bearer ", want: http.StatusUnauthorized,
		},
		{name: "health exempt", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics exempt", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var body errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if body.Code != codeUnauthorized {
				t.Errorf("error code: got %s, want %s", body.Code, codeUnauthorized)
			}
		})
	}
}
