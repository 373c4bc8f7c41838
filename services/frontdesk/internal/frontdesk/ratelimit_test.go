package frontdesk

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignInLimiterPerClient(t *testing.T) {
	l := newSignInLimiter(time.Hour, 2)

	first := httptest.NewRequest(http.MethodPost, "/signin", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	other := httptest.NewRequest(http.MethodPost, "/signin", nil)
	other.RemoteAddr = "10.0.0.2:5000"

	if !l.Allow(first) || !l.Allow(first) {
		t.Fatal("burst attempts rejected")
	}
	if l.Allow(first) {
		t.Error("attempt beyond burst allowed")
	}
	if !l.Allow(other) {
		t.Error("other client throttled by first client's attempts")
	}
}

func TestSignInLimiterSweep(t *testing.T) {
	l := newSignInLimiter(time.Second, 1)
	req := httptest.NewRequest(http.MethodPost, "/signin", nil)
	l.Allow(req)

	l.mu.Lock()
	l.sweep(time.Now().Add(2*limiterIdle), limiterIdle)
	n := len(l.limiters)
	l.mu.Unlock()

	if n != 0 {
		t.Errorf("tracked clients = %d after sweep, want 0", n)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remoteAddr", remote: "10.0.0.1:5000", want: "10.0.0.1"},
		{name: "forwardedFor", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "realIP", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, remote: "10.0.0.1:5000", want: "198.51.100.3"},
		{name: "remoteWithoutPort", remote: "10.0.0.9", want: "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/signin", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
