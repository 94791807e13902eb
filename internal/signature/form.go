package signature

import (
	"sort"
	"strings"
)

// Pair is a single decoded key/value from a URL-encoded form or query string.
type Pair struct {
	Key   string
	Value string
}

// ParseForm decodes a URL-encoded body into pairs, in the order they appear.
// '+' decodes to a space and valid %XX escapes are decoded; malformed escapes
// are kept verbatim. Empty segments are skipped.
func ParseForm(body []byte) []Pair {
	if len(body) == 0 {
		return nil
	}

	var pairs []Pair
	for _, segment := range strings.Split(string(body), "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		pairs = append(pairs, Pair{
			Key:   unescapeFormComponent(key),
			Value: unescapeFormComponent(value),
		})
	}
	return pairs
}

// CanonicalizeForm renders a URL-encoded body as the concatenation of every
// key immediately followed by its value, sorted by key. Pairs sharing a key
// keep their original relative order.
func CanonicalizeForm(body []byte) string {
	return canonicalizePairs(ParseForm(body))
}

func canonicalizePairs(pairs []Pair) string {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(p.Key)
		b.WriteString(p.Value)
	}
	return b.String()
}

func unescapeFormComponent(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			buf = append(buf, ' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
