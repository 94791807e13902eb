package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// HMACSHA1Base64 returns the standard, padded base64 encoding of the
// HMAC-SHA1 of message keyed by key. The result is always 28 characters.
func HMACSHA1Base64(key, message []byte) string {
	mac := hmac.New(sha1.New, key)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SHA256Hex returns the lowercase hex SHA-256 digest of message.
func SHA256Hex(message []byte) string {
	sum := sha256.Sum256(message)
	return hex.EncodeToString(sum[:])
}

// VerifyBodyHash reports whether the SHA-256 of body matches expected.
// The comparison is byte-for-byte and constant time.
func VerifyBodyHash(body []byte, expected string) bool {
	return constantTimeEqual(SHA256Hex(body), expected)
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
