package crypto

import "testing"

func TestEncodeDecodeDIDKey_Secp256k1RoundTrips(t *testing.T) {
	pubKeyBytes := []byte{
		0x02, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f, 0x70,
		0x81, 0x92, 0xa3, 0xb4, 0xc5, 0xd6, 0xe7, 0xf8,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11,
	}

	didKey, err := EncodeDIDKey(KeyTypeSecp256k1, pubKeyBytes)
	if err != nil {
		t.Fatalf("EncodeDIDKey: %v", err)
	}
	if didKey[:len("did:key:z")] != "did:key:z" {
		t.Fatalf("expected did:key:z prefix, got %s", didKey)
	}

	keyType, decoded, err := DecodeDIDKey(didKey)
	if err != nil {
		t.Fatalf("DecodeDIDKey: %v", err)
	}
	if keyType != KeyTypeSecp256k1 {
		t.Fatalf("expected key type %s, got %s", KeyTypeSecp256k1, keyType)
	}
	if len(decoded) != len(pubKeyBytes) {
		t.Fatalf("expected %d decoded bytes, got %d", len(pubKeyBytes), len(decoded))
	}
	for i := range pubKeyBytes {
		if decoded[i] != pubKeyBytes[i] {
			t.Fatalf("byte %d mismatch: got %x want %x", i, decoded[i], pubKeyBytes[i])
		}
	}
}

func TestDecodeDIDKey_RejectsNonDIDKeyIdentifier(t *testing.T) {
	if _, _, err := DecodeDIDKey("did:plc:abcdefg"); err == nil {
		t.Fatal("expected error for a non-did:key identifier")
	}
}

func TestDecodeDIDKey_RejectsUnrecognizedMulticodec(t *testing.T) {
	// z6Mk... is the standard multicodec prefix for Ed25519 (0xed01),
	// which this labeler does not support as a signing key type.
	if _, _, err := DecodeDIDKey("did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"); err == nil {
		t.Fatal("expected error for an unrecognized multicodec prefix")
	}
}

func TestEncodeDIDKey_RejectsUnrecognizedKeyType(t *testing.T) {
	if _, err := EncodeDIDKey("Ed25519", []byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for an unrecognized key type")
	}
}
