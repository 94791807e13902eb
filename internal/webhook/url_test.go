package webhook

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignedURL(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		tls       bool
		headers   map[string]string
		publicURL string
		want      string
	}{
		{
			name:   "plain http",
			target: "/hook?a=1&b=2",
			want:   "http://example.com/hook?a=1&b=2",
		},
		{
			name:   "tls",
			target: "/hook",
			tls:    true,
			want:   "https://example.com/hook",
		},
		{
			name:   "escaped path kept",
			target: "/hook/a%2Fb?q=x%20y",
			want:   "http://example.com/hook/a%2Fb?q=x%20y",
		},
		{
			name:    "forwarded headers win",
			target:  "/hook",
			headers: map[string]string{"X-Forwarded-Proto": "HTTPS", "X-Forwarded-Host": "public.example.com:8443"},
			want:    "https://public.example.com:8443/hook",
		},
		{
			name:    "unknown forwarded proto ignored",
			target:  "/hook",
			headers: map[string]string{"X-Forwarded-Proto": "gopher"},
			want:    "http://example.com/hook",
		},
		{
			name:      "public url replaces scheme and host",
			target:    "/hook?x=1",
			headers:   map[string]string{"X-Forwarded-Host": "ignored.example.com"},
			publicURL: "https://hooks.example.com",
			want:      "https://hooks.example.com/hook?x=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.target, nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			} else {
				req.TLS = nil
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, signedURL(req, tt.publicURL))
		})
	}
}
