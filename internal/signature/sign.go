package signature

// Sign computes the signature a sender would attach to a request for rawURL
// and body. Form payloads are signed against the with-port rendering of the
// URL; JSON payloads (rawURL carrying bodySHA256) sign the URL alone.
func Sign(secret []byte, rawURL string, body []byte) (string, error) {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return "", err
	}
	withPort, _ := urlVariants(u)
	return HMACSHA1Base64(secret, []byte(withPort+classify(u, body).signingSuffix())), nil
}

// WithBodyHash returns rawURL with a bodySHA256 query parameter holding the
// SHA-256 of body, replacing any existing value.
func WithBodyHash(rawURL string, body []byte) (string, error) {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(BodyHashParam, SHA256Hex(body))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
