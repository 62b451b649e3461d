package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateVAPIDKeys creates a fresh P-256 key pair in the URL-safe base64
// form used by the config and by browser subscription code.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}

	private := key.D.FillBytes(make([]byte, 32))
	public := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)

	return base64.RawURLEncoding.EncodeToString(public),
		base64.RawURLEncoding.EncodeToString(private),
		nil
}
