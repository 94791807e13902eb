package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeForm(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "sorted by key", body: "foo=1&bar=2", want: "bar2foo1"},
		{name: "input order does not matter", body: "bar=2&foo=1", want: "bar2foo1"},
		{name: "empty body", body: "", want: ""},
		{name: "percent decoding", body: "a%20b=c%26d", want: "a bc&d"},
		{name: "plus decodes to space", body: "msg=hello+world", want: "msghello world"},
		{name: "duplicate keys keep relative order", body: "b=2&a=x&b=1", want: "axb2b1"},
		{name: "key without value", body: "flag&a=1", want: "a1flag"},
		{name: "empty segments skipped", body: "&&a=1&&", want: "a1"},
		{name: "malformed escape kept verbatim", body: "k=%zz&j=%4", want: "j%4k%zz"},
		{name: "byte-wise ordering puts uppercase first", body: "b=1&B=2&a=3", want: "B2a3b1"},
		{
			name: "twilio style parameters",
			body: "To=%2B18005551212&CallSid=CA1234567890ABCDE&Caller=%2B14158675309&Digits=1234",
			want: "CallSidCA1234567890ABCDECaller+14158675309Digits1234To+18005551212",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalizeForm([]byte(tt.body)))
		})
	}
}

func TestParseFormKeepsOriginalOrder(t *testing.T) {
	got := ParseForm([]byte("z=1&a=2&m=%41"))
	assert.Equal(t, []Pair{{"z", "1"}, {"a", "2"}, {"m", "A"}}, got)
}

func TestCanonicalizePairsDoesNotMutateInput(t *testing.T) {
	pairs := []Pair{{"b", "2"}, {"a", "1"}}
	assert.Equal(t, "a1b2", canonicalizePairs(pairs))
	assert.Equal(t, []Pair{{"b", "2"}, {"a", "1"}}, pairs)
}
