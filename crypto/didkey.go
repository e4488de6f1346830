package crypto

import (
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"

	"github.com/teranos/labelmaker/errors"
)

// Multicodec codes for the two key types atproto recognizes in
// verificationMethod / did:key encodings.
const (
	CodecP256       uint64 = 0x1200
	CodecSecp256k1  uint64 = 0xe7
	KeyTypeP256     = "P-256"
	KeyTypeSecp256k1 = "secp256k1"
)

// EncodeDIDKey builds a did:key:z… identifier from a raw compressed public
// key and its key type.
func EncodeDIDKey(keyType string, pubKeyBytes []byte) (string, error) {
	code, err := codecForKeyType(keyType)
	if err != nil {
		return "", err
	}

	prefixed := append(varint.ToUvarint(code), pubKeyBytes...)
	encoded := base58.Encode(prefixed)
	return "did:key:z" + encoded, nil
}

// DecodeDIDKey parses a did:key:z… identifier, returning the key type and
// raw public key bytes.
func DecodeDIDKey(didKey string) (keyType string, pubKeyBytes []byte, err error) {
	const prefix = "did:key:"
	if !strings.HasPrefix(didKey, prefix) {
		return "", nil, errors.Newf("not a did:key identifier: %s", didKey)
	}
	return DecodeMultikey(strings.TrimPrefix(didKey, prefix))
}

// DecodeMultikey parses a bare multibase-prefixed multicodec key (the form
// found in a DID document's publicKeyMultibase field), returning the key
// type and raw public key bytes.
func DecodeMultikey(mb string) (keyType string, pubKeyBytes []byte, err error) {
	_, data, err := multibase.Decode(mb)
	if err != nil {
		return "", nil, errors.Wrap(err, "decode multibase key")
	}

	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return "", nil, errors.Wrap(err, "decode multicodec prefix")
	}

	keyType, err = keyTypeForCodec(code)
	if err != nil {
		return "", nil, err
	}

	return keyType, data[n:], nil
}

func codecForKeyType(keyType string) (uint64, error) {
	switch keyType {
	case KeyTypeP256:
		return CodecP256, nil
	case KeyTypeSecp256k1:
		return CodecSecp256k1, nil
	default:
		return 0, errors.Newf("unrecognized key type: %s", keyType)
	}
}

func keyTypeForCodec(code uint64) (string, error) {
	switch code {
	case CodecP256:
		return KeyTypeP256, nil
	case CodecSecp256k1:
		return KeyTypeSecp256k1, nil
	default:
		return "", errors.Newf("unrecognized multicodec key prefix: 0x%x", code)
	}
}
