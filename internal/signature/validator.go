package signature

import (
	"crypto/subtle"
	"net/url"
)

// Reason records why a request was accepted or rejected. It is for audit logs
// and metrics; callers must not expose it to the sender.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonMalformedURL
	ReasonMissingSignature
	ReasonSignatureMismatch
	ReasonBodyHashMismatch
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonMalformedURL:
		return "malformed_url"
	case ReasonMissingSignature:
		return "missing_signature"
	case ReasonSignatureMismatch:
		return "signature_mismatch"
	case ReasonBodyHashMismatch:
		return "body_hash_mismatch"
	default:
		return "unknown"
	}
}

// Variant identifies which URL rendering matched the supplied signature.
type Variant int

const (
	VariantNone Variant = iota
	VariantWithPort
	VariantWithoutPort
)

func (v Variant) String() string {
	switch v {
	case VariantWithPort:
		return "with_port"
	case VariantWithoutPort:
		return "without_port"
	default:
		return "none"
	}
}

// Result is the outcome of a single validation.
type Result struct {
	Valid   bool
	Reason  Reason
	Payload PayloadKind
	Variant Variant
}

// Validator checks request signatures against a single shared secret.
// It is immutable and safe for concurrent use.
type Validator struct {
	secret []byte
}

// NewValidator returns a Validator for secret. The secret is copied.
func NewValidator(secret []byte) *Validator {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Validator{secret: s}
}

// ValidateRequest reports whether supplied is a valid signature for rawURL
// and body.
func (v *Validator) ValidateRequest(supplied, rawURL string, body []byte) bool {
	return v.Validate(supplied, rawURL, body).Valid
}

// Validate checks supplied against rawURL and body and reports why it was
// accepted or rejected.
//
// Without a bodySHA256 query parameter the body is treated as a URL-encoded
// form and its sorted parameters are appended to the signed URL. With one,
// only the URL is signed and the body's SHA-256 must equal the parameter.
// Both URL variants are tried.
func (v *Validator) Validate(supplied, rawURL string, body []byte) Result {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return Result{Reason: ReasonMalformedURL}
	}

	payload := classify(u, body)
	res := Result{Payload: payload.Kind()}
	if supplied == "" {
		res.Reason = ReasonMissingSignature
		return res
	}

	variant := v.matchVariant(u, payload.signingSuffix(), supplied)
	bodyOK := true
	if jp, ok := payload.(JSONPayload); ok {
		bodyOK = VerifyBodyHash(body, jp.BodyHash)
	}

	switch {
	case variant == VariantNone:
		res.Reason = ReasonSignatureMismatch
	case !bodyOK:
		res.Reason = ReasonBodyHashMismatch
	default:
		res.Valid = true
		res.Reason = ReasonOK
		res.Variant = variant
	}
	return res
}

// matchVariant compares supplied against both URL variants. Both are always
// computed and compared.
func (v *Validator) matchVariant(u *url.URL, suffix, supplied string) Variant {
	withPort, withoutPort := urlVariants(u)
	got := []byte(supplied)

	a := subtle.ConstantTimeCompare([]byte(HMACSHA1Base64(v.secret, []byte(withPort+suffix))), got)
	b := subtle.ConstantTimeCompare([]byte(HMACSHA1Base64(v.secret, []byte(withoutPort+suffix))), got)

	switch {
	case a == 1:
		return VariantWithPort
	case b == 1:
		return VariantWithoutPort
	default:
		return VariantNone
	}
}

// Validate checks supplied against rawURL and body using secret.
func Validate(secret []byte, supplied, rawURL string, body []byte) Result {
	return (&Validator{secret: secret}).Validate(supplied, rawURL, body)
}

// ValidateRequest reports whether supplied is a valid signature for rawURL
// and body under secret. Malformed input and mismatches both yield false.
func ValidateRequest(secret []byte, supplied, rawURL string, body []byte) bool {
	return Validate(secret, supplied, rawURL, body).Valid
}
