// Package crypto implements the labeler's signing, did:key, DID-document
// resolution, and JWT-verification primitives.
package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/teranos/labelmaker/errors"
)

// PrivateKeySize is the length in bytes of a raw secp256k1 private key.
const PrivateKeySize = 32

// LoadSigningKey parses the labeler's configured signing key, accepting
// either hex or base64 encoding of the 32 raw private key bytes. Inputs
// presented as a did:key (a public key) are rejected.
func LoadSigningKey(raw string) (*crypto.PrivateKeyK256, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("signing key is empty")
	}
	if strings.HasPrefix(raw, "did:key:") {
		return nil, errors.New("signing key must be a raw private key, not a did:key public key")
	}

	keyBytes, err := decodeKeyBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode signing key")
	}
	if len(keyBytes) != PrivateKeySize {
		return nil, errors.Newf("signing key must be %d bytes, got %d", PrivateKeySize, len(keyBytes))
	}

	priv, err := crypto.ParsePrivateBytesK256(keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse secp256k1 private key")
	}
	return priv, nil
}

// decodeKeyBytes tries hex first (the common convention for raw secp256k1
// keys), then standard and URL-safe base64.
func decodeKeyBytes(raw string) ([]byte, error) {
	if b, err := hex.DecodeString(raw); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	return nil, errors.New("signing key is neither valid hex nor valid base64")
}
