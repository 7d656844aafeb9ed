// Package token reads the claims of a bearer token locally. It performs no
// signature or expiry verification; the server remains the authority.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every decode failure.
var ErrInvalid = errors.New("invalid token")

// Claims holds the fields the client reads from a token payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the payload carries no numeric exp
}

var encodings = []*base64.Encoding{
	base64.RawURLEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.StdEncoding,
}

// Decode extracts the claims from a three-segment dot-delimited token.
func Decode(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: want 3 segments, got %d", ErrInvalid, len(parts))
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrInvalid, err)
	}

	sub, err := subject(raw["sub"])
	if err != nil {
		return Claims{}, err
	}
	return Claims{Subject: sub, ExpiresAt: expiry(raw["exp"])}, nil
}

// Subject is Decode reduced to the subject claim.
func Subject(tok string) (string, error) {
	c, err := Decode(tok)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func decodeSegment(seg string) ([]byte, error) {
	if seg == "" {
		return nil, fmt.Errorf("%w: empty payload segment", ErrInvalid)
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(seg); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: payload segment is not base64", ErrInvalid)
}

func subject(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: no sub claim", ErrInvalid)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: empty sub claim", ErrInvalid)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: sub claim is not a string", ErrInvalid)
}

func expiry(raw json.RawMessage) time.Time {
	var n json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return time.Time{}
	}
	secs, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}
		}
		secs = int64(f)
	}
	return time.Unix(secs, 0).UTC()
}
