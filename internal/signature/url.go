package signature

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL is returned when a request URL cannot be parsed or is not
// absolute.
var ErrMalformedURL = errors.New("malformed url")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizedURLVariants returns the two renderings of rawURL a sender may have
// signed: one with an explicit port (the URL's own, or the scheme default) and
// one with the port stripped.
func NormalizedURLVariants(rawURL string) (withPort, withoutPort string, err error) {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return "", "", err
	}
	withPort, withoutPort = urlVariants(u)
	return withPort, withoutPort, nil
}

func parseAbsoluteURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrMalformedURL, rawURL)
	}
	return u, nil
}

func urlVariants(u *url.URL) (withPort, withoutPort string) {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	return buildURL(u, port), buildURL(u, "")
}

// buildURL renders u as scheme, userinfo, host, port, path, query and fragment,
// in that order. An empty port omits the ":port" segment.
func buildURL(u *url.URL, port string) string {
	scheme := strings.ToLower(u.Scheme)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	b.WriteString(host)
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}

	path := u.EscapedPath()
	if path == "" {
		if _, special := defaultPorts[scheme]; special {
			path = "/"
		}
	}
	b.WriteString(path)

	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}
