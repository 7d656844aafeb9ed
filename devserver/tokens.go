package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errBadToken = errors.New("bad token")

// tokenHeader is the fixed, pre-encoded {"alg":"HS256","typ":"JWT"} segment.
var tokenHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

type claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
	JTI string `json:"jti"`
}

// signer issues and verifies HS256 bearer tokens whose subject is the
// decimal user id.
type signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func (s signer) issue(userID int64) string {
	c := claims{Sub: itoa(userID), Exp: s.now().Add(s.ttl).Unix(), JTI: uuid.NewString()}
	payload, _ := json.Marshal(c)
	body := tokenHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.sign(body)
}

func (s signer) verify(tok string) (int64, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return 0, errBadToken
	}
	body := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(body))) {
		return 0, errBadToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, errBadToken
	}
	var c claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, errBadToken
	}
	if c.Exp != 0 && s.now().Unix() >= c.Exp {
		return 0, errBadToken
	}
	id, err := strconv.ParseInt(c.Sub, 10, 64)
	if err != nil {
		return 0, errBadToken
	}
	return id, nil
}

func (s signer) sign(body string) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
