package webhook

import (
	"net/http"
	"strings"
)

// signedURL rebuilds the absolute URL the sender signed.
//
// With publicURL set it is publicURL followed by the request URI. Otherwise the
// scheme comes from X-Forwarded-Proto or the TLS state, and the host from
// X-Forwarded-Host or the Host header.
func signedURL(r *http.Request, publicURL string) string {
	requestURI := r.URL.RequestURI()

	if publicURL != "" {
		return strings.TrimRight(publicURL, "/") + requestURI
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto != "" {
		switch p := strings.ToLower(proto); p {
		case "http", "https":
			scheme = p
		}
	}

	host := r.Host
	if fwd := firstHeaderValue(r, "X-Forwarded-Host"); fwd != "" {
		host = fwd
	}

	return scheme + "://" + host + requestURI
}

// firstHeaderValue returns the first entry of a comma-separated proxy header.
func firstHeaderValue(r *http.Request, name string) string {
	v := r.Header.Get(name)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
