// Package webhook implements the signed webhook gate.
//
// Each configured endpoint verifies the Twilio-style X-Twilio-Signature
// header (HMAC-SHA1 over the absolute request URL plus, for form bodies,
// the sorted form parameters) before a delivery is accepted. JSON bodies
// are bound to the signature through the bodySHA256 query parameter.
//
// # Security Model
//
// - Signatures checked by package signature using crypto/subtle
// - Both URL variants (with and without the default port) are always computed
// - Body size limits enforced before any hashing
// - No signature details leaked in error responses (always generic 403)
// - The rejection reason is logged and counted, never returned
// - Request logging excludes payloads and secrets
//
// # Signed URL
//
// Senders sign the URL they were configured with, which behind a proxy is not
// the URL this process sees. With public_url set, the signed URL is public_url
// followed by the request URI. Otherwise X-Forwarded-Proto and
// X-Forwarded-Host are honoured, falling back to TLS state and the Host header.
//
// # Configuration
//
//	webhooks:
//	  listen: "127.0.0.1:8081"
//	  endpoints:
//	    - path: /twilio/sms
//	      name: sms
//	      secret_ref: twilio_auth_token   # References tokens
//	      max_body_size: 1MB
//	      public_url: https://hooks.example.com
//
// # Request Flow
//
//  1. HTTP POST arrives at configured path
//  2. Body size checked (reject with 413 if too large)
//  3. Signed URL rebuilt from public_url or forwarded headers
//  4. signature.Validator decides and explains the outcome
//  5. Delivery recorded (accepted or rejected)
//  6. 202 Accepted with delivery_id, or 403 Forbidden
//
// # Error Responses
//
// - 403 Forbidden: Invalid, missing or mismatched signature (no details)
// - 404 Not Found: Unknown webhook path
// - 413 Payload Too Large: Body exceeds max_body_size
// - 500 Internal Server Error: Accepted delivery could not be recorded
package webhook
