// Package push delivers web push notifications to browser subscriptions
// using VAPID (RFC 8292) authorization.
package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const vapidTokenTTL = 12 * time.Hour

// vapidKeyPair holds the decoded VAPID signing key plus the public key in
// the URL-safe form push services expect back in the k parameter.
type vapidKeyPair struct {
	privateKey *ecdsa.PrivateKey
	publicKey  string
}

// decodeVAPIDKeys decodes the configured key pair. The private key is the
// URL-safe base64 encoding of the raw 32-byte P-256 scalar; the public key
// is the 65-byte uncompressed point, kept verbatim for the Authorization
// header.
func decodeVAPIDKeys(publicKey, privateKey string) (*vapidKeyPair, error) {
	raw, err := base64.RawURLEncoding.DecodeString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("private key scalar out of range")
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(raw)

	if rawPub, err := base64.RawURLEncoding.DecodeString(publicKey); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	} else if len(rawPub) != 65 || rawPub[0] != 4 {
		return nil, fmt.Errorf("public key must be a 65-byte uncompressed point")
	}

	return &vapidKeyPair{privateKey: key, publicKey: publicKey}, nil
}

// authorizationHeader builds the `vapid t=..., k=...` Authorization value
// for one push endpoint. The JWT audience is the endpoint's origin, never
// the full URL.
func (kp *vapidKeyPair) authorizationHeader(endpoint, subject string, now time.Time) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q", endpoint)
	}
	audience := parsed.Scheme + "://" + parsed.Host

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": audience,
		"exp": now.Add(vapidTokenTTL).Unix(),
		"sub": subject,
	})

	signed, err := token.SignedString(kp.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign vapid token: %w", err)
	}

	return fmt.Sprintf("vapid t=%s, k=%s", signed, kp.publicKey), nil
}
