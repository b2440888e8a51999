package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedToken is returned when a bearer token cannot be decoded.
var ErrMalformedToken = errors.New("auth: malformed bearer token")

// Claims is the decoded payload of a bearer token, normalized at the
// boundary: depending on backend revision the subject arrives as "sub",
// "id" or "userId", so the rest of the client only ever sees Subject.
type Claims struct {
	Subject string
	Exp     int64 // seconds since epoch
	Raw     map[string]any
}

// DecodeToken decodes the claims segment of a three-part bearer token. It
// performs no signature verification; the server is the authority, the
// client only needs the subject and expiry.
func DecodeToken(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrMalformedToken
	}

	c := &Claims{Raw: raw}
	for _, field := range []string{"sub", "id", "userId"} {
		switch v := raw[field].(type) {
		case string:
			if v != "" {
				c.Subject = v
			}
		case float64:
			c.Subject = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if c.Subject != "" {
			break
		}
	}
	if exp, ok := raw["exp"].(float64); ok {
		c.Exp = int64(exp)
	}
	return c, nil
}

func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	// Some issuers pad their segments.
	return base64.URLEncoding.DecodeString(seg)
}

// Valid reports whether token has three segments, decodes, and carries an
// expiry in the future relative to now.
func Valid(token string, now time.Time) bool {
	c, err := DecodeToken(token)
	if err != nil {
		return false
	}
	return c.Exp*1000 > now.UnixMilli()
}
