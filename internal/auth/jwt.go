// Package auth verifies the short-lived bearer tokens that devices present
// when connecting to the signaling endpoint.
//
// Tokens are issued elsewhere (the account backend); this package only
// verifies HS256 signatures and expiry, and extracts the pairing claims.
package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"crypto/hmac"
	"crypto/sha256"
)

var (
	// ErrMissingToken indicates the upgrade request carried no token at all.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken covers malformed tokens, bad signatures and expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingClaims indicates a well-signed token without the full
	// {pairId, deviceId, userId} claim set.
	ErrMissingClaims = errors.New("token missing required claims")
)

const (
	// HMAC-SHA256 output is 32 bytes; base64url without padding is 43 chars.
	hmacSigLen    = 32
	hmacSigB64Len = 43

	maxHeaderB64Len  = 4 * 1024
	maxPayloadB64Len = 16 * 1024
	maxTokenLen      = maxHeaderB64Len + 1 + maxPayloadB64Len + 1 + hmacSigB64Len
)

// Claims are the pairing claims carried by a verified token.
type Claims struct {
	PairID   string
	DeviceID string
	UserID   string
}

// Verifier validates bearer tokens against a shared HS256 secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify checks the token's signature and expiry and returns its pairing
// claims. Signature, shape and expiry problems yield ErrInvalidToken; a
// valid token lacking any of the three pairing claims yields
// ErrMissingClaims.
func (v *Verifier) Verify(token string) (Claims, error) {
	headerB64, payloadB64, sigB64, ok := splitToken(token)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if header.Alg != "HS256" {
		return Claims{}, ErrInvalidToken
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(gotSig) != hmacSigLen {
		return Claims{}, ErrInvalidToken
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = io.WriteString(mac, headerB64)
	_, _ = mac.Write([]byte{'.'})
	_, _ = io.WriteString(mac, payloadB64)
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return Claims{}, ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, err := decodeClaims(payloadJSON)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	now := v.now().Unix()

	exp, ok := claims["exp"]
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	expUnix, err := unixTimestamp(exp)
	if err != nil || now >= expUnix {
		return Claims{}, ErrInvalidToken
	}

	if nbf, ok := claims["nbf"]; ok {
		nbfUnix, err := unixTimestamp(nbf)
		if err != nil || now < nbfUnix {
			return Claims{}, ErrInvalidToken
		}
	}

	out := Claims{
		PairID:   stringClaim(claims, "pairId"),
		DeviceID: stringClaim(claims, "deviceId"),
		UserID:   stringClaim(claims, "userId"),
	}
	if out.PairID == "" || out.DeviceID == "" || out.UserID == "" {
		return Claims{}, ErrMissingClaims
	}
	return out, nil
}

func decodeClaims(payloadJSON []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payloadJSON))
	dec.UseNumber()
	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}
	// json.Decoder tolerates trailing bytes after the first top-level value;
	// require the payload to be exactly one JSON object.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("trailing data after claims object")
	}
	return claims, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func splitToken(token string) (headerB64, payloadB64, sigB64 string, ok bool) {
	if token == "" || len(token) > maxTokenLen {
		return "", "", "", false
	}
	headerB64, rest, found := strings.Cut(token, ".")
	if !found {
		return "", "", "", false
	}
	payloadB64, sigB64, found = strings.Cut(rest, ".")
	if !found || strings.Contains(sigB64, ".") {
		return "", "", "", false
	}
	if headerB64 == "" || payloadB64 == "" {
		return "", "", "", false
	}
	if len(headerB64) > maxHeaderB64Len || len(payloadB64) > maxPayloadB64Len {
		return "", "", "", false
	}
	if len(sigB64) != hmacSigB64Len {
		return "", "", "", false
	}
	if !isBase64url(headerB64) || !isBase64url(payloadB64) || !isBase64url(sigB64) {
		return "", "", "", false
	}
	return headerB64, payloadB64, sigB64, true
}

func isBase64url(raw string) bool {
	// Base64url without padding cannot have length mod 4 == 1.
	if len(raw)%4 == 1 {
		return false
	}
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '-', b == '_':
		default:
			return false
		}
	}
	return true
}

func unixTimestamp(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %T", v)
	}
	return n.Int64()
}
