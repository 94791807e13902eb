// Package signature authenticates inbound webhook requests signed with a
// shared secret.
//
// A sender signs every request with HMAC-SHA1 keyed by the shared secret and
// places the base64 digest in a header. The signed string depends on the
// payload shape:
//
//   - URL-encoded form bodies: the full request URL followed by every form
//     parameter, sorted by key, rendered as key immediately followed by value.
//   - JSON bodies: the request URL alone. The URL carries a bodySHA256 query
//     parameter holding the hex SHA-256 of the raw body, so the body is bound
//     to the signature through the URL.
//
// Senders disagree on whether the default port belongs in the signed URL, so
// both the with-port and without-port renderings are tried.
//
// # Security Model
//
//   - Every signature and digest comparison uses crypto/subtle.
//   - Both URL variants are always computed and compared.
//   - The public boundary (ValidateRequest) is a single boolean. The Reason in
//     a Result is for audit logs and metrics only and must not be echoed to the
//     caller.
//   - Secrets are never retained beyond a Validator value and never logged.
//
// # Example Usage
//
//	v := signature.NewValidator([]byte(os.Getenv("WEBHOOK_AUTH_TOKEN")))
//	res := v.Validate(r.Header.Get("X-Twilio-Signature"), fullURL, body)
//	if !res.Valid {
//		logger.Warn("webhook rejected", "reason", res.Reason)
//		http.Error(w, "forbidden", http.StatusForbidden)
//		return
//	}
package signature
