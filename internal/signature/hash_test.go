package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSHA1Base64(t *testing.T) {
	got := HMACSHA1Base64([]byte("secret_key"), []byte("bodystring"))
	assert.Equal(t, "lwSWI7Dl0gv2vrUxPYBgDj1qvlY=", got)
}

func TestHMACSHA1Base64Length(t *testing.T) {
	inputs := []struct {
		key     string
		message string
	}{
		{"", ""},
		{"k", "m"},
		{"a much longer key than the sha1 block size, which is sixty four bytes long", "payload"},
		{"12345", "https://mycompany.com/myapp.php?foo=1&bar=2"},
	}

	for _, in := range inputs {
		got := HMACSHA1Base64([]byte(in.key), []byte(in.message))
		assert.Len(t, got, 28)
		assert.Equal(t, got, HMACSHA1Base64([]byte(in.key), []byte(in.message)), "must be deterministic")
	}
}

func TestSHA256Hex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SHA256Hex([]byte(tt.in)))
		})
	}
}

func TestVerifyBodyHash(t *testing.T) {
	body := []byte(`{"property": "value", "boolean": true}`)
	hash := SHA256Hex(body)

	assert.True(t, VerifyBodyHash(body, hash))
	assert.False(t, VerifyBodyHash([]byte(`{"property": "other", "boolean": true}`), hash))
	assert.False(t, VerifyBodyHash(body, ""))
	assert.False(t, VerifyBodyHash(body, hash[:len(hash)-1]))
}
