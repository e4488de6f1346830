package crypto

import (
	"github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/teranos/labelmaker/errors"
)

// Sign produces a compact 64-byte secp256k1 signature over the SHA-256 hash
// of msg, with low-S normalization as required by atproto.
func Sign(priv *crypto.PrivateKeyK256, msg []byte) ([]byte, error) {
	sig, err := priv.HashAndSign(msg)
	if err != nil {
		return nil, errors.Wrap(err, "sign message")
	}
	if len(sig) != 64 {
		return nil, errors.Newf("unexpected signature length %d, expected 64", len(sig))
	}
	return sig, nil
}

// Verify checks a compact 64-byte secp256k1 signature over the SHA-256 hash
// of msg. Both low-S and high-S signatures are accepted for interop with
// signers that don't normalize.
func Verify(pub crypto.PublicKey, msg, sig []byte) error {
	if len(sig) != 64 {
		return errors.Newf("signature must be 64 bytes, got %d", len(sig))
	}
	if err := pub.HashAndVerifyLenient(msg, sig); err != nil {
		return errors.Wrap(err, "verify signature")
	}
	return nil
}
