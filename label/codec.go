package label

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/teranos/labelmaker/crypto"
	"github.com/teranos/labelmaker/errors"
)

var canonicalMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	canonicalMode = mode
}

// signableForm builds the map of exactly the populated non-signature
// fields, in the shape the deterministic encoder will serialize: ver,
// src, uri, val, cts always present; cid, neg, exp present only when
// populated. Optional fields are omitted rather than encoded as null,
// and neg is omitted when false.
func (l Label) signableForm() map[string]interface{} {
	m := map[string]interface{}{
		"ver": int64(1),
		"src": l.Src,
		"uri": l.URI,
		"val": l.Val,
		"cts": l.Cts,
	}
	if l.CID != "" {
		m["cid"] = l.CID
	}
	if l.Neg {
		m["neg"] = true
	}
	if l.Exp != "" {
		m["exp"] = l.Exp
	}
	return m
}

// EncodeSignable produces the deterministic CBOR encoding of the label's
// signable form. Encoding the same logical label twice yields
// byte-identical output.
func EncodeSignable(l Label) ([]byte, error) {
	enc, err := canonicalMode.Marshal(l.signableForm())
	if err != nil {
		return nil, errors.Wrap(err, "encode signable label")
	}
	return enc, nil
}

// Sign produces the deterministic encoding of l's signable form, signs it
// with priv, and returns l with Sig attached.
func Sign(l Label, priv *indigocrypto.PrivateKeyK256) (Label, error) {
	l.Ver = 1
	enc, err := EncodeSignable(l)
	if err != nil {
		return Label{}, err
	}
	sig, err := crypto.Sign(priv, enc)
	if err != nil {
		return Label{}, errors.Wrap(err, "sign label")
	}
	l.Sig = sig
	return l, nil
}

// Verify re-encodes l's non-signature fields deterministically and checks
// Sig against pub. The re-encoded bytes must equal those that were signed.
func Verify(l Label, pub indigocrypto.PublicKey) error {
	enc, err := EncodeSignable(l)
	if err != nil {
		return err
	}
	return crypto.Verify(pub, enc, l.Sig)
}

// EncodingsEqual reports whether two labels produce byte-identical
// deterministic encodings, used by self-check round-trip tests.
func EncodingsEqual(a, b Label) (bool, error) {
	ea, err := EncodeSignable(a)
	if err != nil {
		return false, err
	}
	eb, err := EncodeSignable(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ea, eb), nil
}
