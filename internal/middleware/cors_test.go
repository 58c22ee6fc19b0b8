package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, allowed []string, method, origin string) (*http.Response, bool) {
	t.Helper()
	reached := false
	h := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/config", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result(), reached
}

func TestCORSExplicitOriginGetsCredentials(t *testing.T) {
	t.Parallel()

	resp, reached := corsRequest(t, []string{"https://bq.example"}, http.MethodGet, "https://bq.example")
	if !reached {
		t.Fatal("expected request to reach handler")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://bq.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials for explicit origin, got %q", got)
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	t.Parallel()

	resp, _ := corsRequest(t, []string{"*"}, http.MethodGet, "https://anywhere.example")
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://anywhere.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("wildcard match must not allow credentials, got %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	t.Parallel()

	resp, _ := corsRequest(t, []string{"https://bq.example"}, http.MethodGet, "https://evil.example")
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	t.Parallel()

	resp, reached := corsRequest(t, []string{"*"}, http.MethodOptions, "https://bq.example")
	if reached {
		t.Error("preflight must not reach the handler")
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}
