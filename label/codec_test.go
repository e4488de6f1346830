package label

import (
	"testing"

	"github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *crypto.PrivateKeyK256 {
	t.Helper()
	key, err := crypto.GeneratePrivateKeyK256()
	require.NoError(t, err)
	return key
}

func TestEncodeSignable_OmitsAbsentOptionalFields(t *testing.T) {
	l := Label{Src: "did:plc:aaa", URI: "did:plc:bbb", Val: "spam", Cts: "2024-01-01T00:00:00Z"}

	enc, err := EncodeSignable(l)
	require.NoError(t, err)
	assert.NotContains(t, string(enc), "neg")
	assert.NotContains(t, string(enc), "cid")
	assert.NotContains(t, string(enc), "exp")
}

func TestEncodeSignable_IsDeterministic(t *testing.T) {
	l := Label{Src: "did:plc:aaa", URI: "did:plc:bbb", Val: "spam", Cts: "2024-01-01T00:00:00Z", Neg: true, CID: "bafy123", Exp: "2025-01-01T00:00:00Z"}

	a, err := EncodeSignable(l)
	require.NoError(t, err)
	b, err := EncodeSignable(l)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignAndVerify_RoundTrip(t *testing.T) {
	priv := testKey(t)

	l := Label{Src: "did:plc:aaa", URI: "did:plc:bbb", Val: "spam", Cts: NowISO8601()}
	signed, err := Sign(l, priv)
	require.NoError(t, err)
	require.Len(t, signed.Sig, 64)

	err = Verify(signed, priv.Public())
	assert.NoError(t, err)
}

func TestVerify_FailsOnTamperedField(t *testing.T) {
	priv := testKey(t)

	l := Label{Src: "did:plc:aaa", URI: "did:plc:bbb", Val: "spam", Cts: NowISO8601()}
	signed, err := Sign(l, priv)
	require.NoError(t, err)

	signed.Val = "tampered"
	err = Verify(signed, priv.Public())
	assert.Error(t, err)
}

func TestEncodingsEqual(t *testing.T) {
	a := Label{Src: "did:plc:aaa", URI: "did:plc:bbb", Val: "spam", Cts: "2024-01-01T00:00:00Z"}
	b := a
	eq, err := EncodingsEqual(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	b.Val = "other"
	eq, err = EncodingsEqual(a, b)
	require.NoError(t, err)
	assert.False(t, eq)
}
