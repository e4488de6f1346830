package frame

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage_DecodesAsTwoObjects(t *testing.T) {
	raw, err := EncodeMessage(LabelsBody{Seq: 7, Labels: []string{"x"}})
	require.NoError(t, err)

	headerBytes, bodyBytes, err := Decode(raw)
	require.NoError(t, err)

	var header MessageHeader
	require.NoError(t, cbor.Unmarshal(headerBytes, &header))
	assert.Equal(t, 1, header.Op)
	assert.Equal(t, "#labels", header.T)

	var body LabelsBody
	require.NoError(t, cbor.Unmarshal(bodyBytes, &body))
	assert.EqualValues(t, 7, body.Seq)
}

func TestEncodeError_HasNegativeOp(t *testing.T) {
	raw, err := EncodeError("FutureCursor", "cursor exceeds maxId")
	require.NoError(t, err)

	headerBytes, bodyBytes, err := Decode(raw)
	require.NoError(t, err)

	var header ErrorHeader
	require.NoError(t, cbor.Unmarshal(headerBytes, &header))
	assert.Equal(t, -1, header.Op)

	var body ErrorBody
	require.NoError(t, cbor.Unmarshal(bodyBytes, &body))
	assert.Equal(t, "FutureCursor", body.Error)
	assert.Equal(t, "cursor exceeds maxId", body.Message)
}
