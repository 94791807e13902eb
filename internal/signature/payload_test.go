package signature

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBodyHashParam(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{
			name:   "present",
			url:    "https://example.com/hook?bodySHA256=abc123",
			want:   "abc123",
			wantOK: true,
		},
		{
			name:   "present among other params",
			url:    "https://example.com/hook?foo=1&bodySHA256=abc123&bar=2",
			want:   "abc123",
			wantOK: true,
		},
		{
			name:   "first occurrence wins",
			url:    "https://example.com/hook?bodySHA256=first&bodySHA256=second",
			want:   "first",
			wantOK: true,
		},
		{
			name:   "value is percent decoded",
			url:    "https://example.com/hook?bodySHA256=ab%63",
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "present but empty",
			url:    "https://example.com/hook?bodySHA256=",
			want:   "",
			wantOK: true,
		},
		{
			name:   "absent",
			url:    "https://example.com/hook?foo=1",
			wantOK: false,
		},
		{
			name:   "name is case sensitive",
			url:    "https://example.com/hook?bodysha256=abc",
			wantOK: false,
		},
		{
			name:   "fragment is not the query",
			url:    "https://example.com/hook#bodySHA256=abc",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ExtractBodyHashParam(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBodyHashParamMalformed(t *testing.T) {
	_, ok, err := ExtractBodyHashParam("://nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedURL))
	assert.False(t, ok)
}

func TestClassifyPayload(t *testing.T) {
	p, err := ClassifyPayload("https://example.com/hook", []byte("b=2&a=1"))
	require.NoError(t, err)
	form, ok := p.(FormPayload)
	require.True(t, ok, "expected FormPayload, got %T", p)
	assert.Equal(t, PayloadForm, form.Kind())
	assert.Equal(t, []Pair{{"b", "2"}, {"a", "1"}}, form.Params)

	p, err = ClassifyPayload("https://example.com/hook?bodySHA256=deadbeef", []byte(`{"a":1}`))
	require.NoError(t, err)
	js, ok := p.(JSONPayload)
	require.True(t, ok, "expected JSONPayload, got %T", p)
	assert.Equal(t, PayloadJSON, js.Kind())
	assert.Equal(t, "deadbeef", js.BodyHash)

	_, err = ClassifyPayload("not a url", nil)
	assert.ErrorIs(t, err, ErrMalformedURL)
}

func TestPayloadKindString(t *testing.T) {
	assert.Equal(t, "form", PayloadForm.String())
	assert.Equal(t, "json", PayloadJSON.String())
	assert.Equal(t, "unknown", PayloadUnknown.String())
}
