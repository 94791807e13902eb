package signature

import (
	"net/url"
)

// BodyHashParam is the query parameter a sender uses to commit to the SHA-256
// of a JSON body.
const BodyHashParam = "bodySHA256"

// PayloadKind identifies how a request body is bound to its signature.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadForm
	PayloadJSON
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadForm:
		return "form"
	case PayloadJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Payload is either a FormPayload or a JSONPayload.
type Payload interface {
	Kind() PayloadKind
	// signingSuffix is appended to the normalized URL to form the signed string.
	signingSuffix() string
}

// FormPayload is a URL-encoded body whose parameters are part of the signed string.
type FormPayload struct {
	Params []Pair
}

func (FormPayload) Kind() PayloadKind { return PayloadForm }

func (p FormPayload) signingSuffix() string { return canonicalizePairs(p.Params) }

// JSONPayload is an opaque body bound to the signature by the digest carried
// in the URL.
type JSONPayload struct {
	BodyHash string
}

func (JSONPayload) Kind() PayloadKind { return PayloadJSON }

func (JSONPayload) signingSuffix() string { return "" }

// ExtractBodyHashParam looks up BodyHashParam in the query of rawURL. The
// first occurrence wins. ok is false when the parameter is absent.
func ExtractBodyHashParam(rawURL string) (value string, ok bool, err error) {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return "", false, err
	}
	value, ok = bodyHashFromURL(u)
	return value, ok, nil
}

// ClassifyPayload decides how body is bound to the signature of rawURL.
func ClassifyPayload(rawURL string, body []byte) (Payload, error) {
	u, err := parseAbsoluteURL(rawURL)
	if err != nil {
		return nil, err
	}
	return classify(u, body), nil
}

func classify(u *url.URL, body []byte) Payload {
	if hash, ok := bodyHashFromURL(u); ok {
		return JSONPayload{BodyHash: hash}
	}
	return FormPayload{Params: ParseForm(body)}
}

func bodyHashFromURL(u *url.URL) (string, bool) {
	for _, p := range ParseForm([]byte(u.RawQuery)) {
		if p.Key == BodyHashParam {
			return p.Value, true
		}
	}
	return "", false
}
