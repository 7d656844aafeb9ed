package token

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(payload string, enc *base64.Encoding) string {
	return "eyJhbGciOiJIUzI1NiJ9." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecode_ValidSubjects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		payload string
		enc     *base64.Encoding
		want    string
	}{
		{"string sub raw url", `{"sub":"42","exp":1700000000}`, base64.RawURLEncoding, "42"},
		{"string sub padded std", `{"sub":"alice@example.com"}`, base64.StdEncoding, "alice@example.com"},
		{"numeric sub", `{"sub":7}`, base64.RawURLEncoding, "7"},
		{"url alphabet", `{"sub":"??>>"}`, base64.RawURLEncoding, "??>>"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := Subject(build(c.payload, c.enc))
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestDecode_Expiry(t *testing.T) {
	t.Parallel()
	c, err := Decode(build(`{"sub":"1","exp":1700000000}`, base64.RawURLEncoding))
	require.NoError(t, err)
	assert.True(t, c.ExpiresAt.Equal(time.Unix(1700000000, 0)))

	c, err = Decode(build(`{"sub":"1"}`, base64.RawURLEncoding))
	require.NoError(t, err)
	assert.True(t, c.ExpiresAt.IsZero())
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"empty":            "",
		"one segment":      "abc",
		"two segments":     "a.b",
		"four segments":    "a.b.c.d",
		"empty payload":    "a..c",
		"not base64":       "a.!!!.c",
		"not json":         build("not json", base64.RawURLEncoding),
		"json array":       build(`["sub"]`, base64.RawURLEncoding),
		"json null":        build(`null`, base64.RawURLEncoding),
		"trailing text":    build(`{"sub":"7"} not json`, base64.RawURLEncoding),
		"trailing object":  build(`{"sub":"7"}{"x":1}`, base64.RawURLEncoding),
		"trailing bracket": build(`{"sub":"7"}]`, base64.RawURLEncoding),
		"missing sub":      build(`{"name":"x"}`, base64.RawURLEncoding),
		"null sub":         build(`{"sub":null}`, base64.RawURLEncoding),
		"empty sub":        build(`{"sub":""}`, base64.RawURLEncoding),
		"object sub":       build(`{"sub":{"id":1}}`, base64.RawURLEncoding),
		"boolean sub":      build(`{"sub":true}`, base64.RawURLEncoding),
	}
	for name, tok := range cases {
		tok := tok
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "error %v should wrap ErrInvalid", err)
		})
	}
}
