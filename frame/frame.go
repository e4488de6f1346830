// Package frame implements the wire framing for the subscription
// stream: each message is the concatenation of two deterministically
// encoded CBOR objects, a header and a body.
package frame

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"

	"github.com/teranos/labelmaker/errors"
)

var encMode cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = mode
}

// MessageHeader precedes a #labels body.
type MessageHeader struct {
	Op int    `cbor:"op"`
	T  string `cbor:"t"`
}

// ErrorHeader precedes an error body.
type ErrorHeader struct {
	Op int `cbor:"op"`
}

// ErrorBody is the payload of an error frame.
type ErrorBody struct {
	Error   string `cbor:"error"`
	Message string `cbor:"message"`
}

// LabelsBody is the payload of a #labels message frame.
type LabelsBody struct {
	Seq    int64       `cbor:"seq"`
	Labels interface{} `cbor:"labels"`
}

// EncodeMessage frames a #labels message: header {op:1, t:"#labels"}
// followed by body.
func EncodeMessage(body LabelsBody) ([]byte, error) {
	return encodeFrame(MessageHeader{Op: 1, T: "#labels"}, body)
}

// EncodeError frames an error: header {op:-1} followed by
// {error, message}.
func EncodeError(kind, message string) ([]byte, error) {
	return encodeFrame(ErrorHeader{Op: -1}, ErrorBody{Error: kind, Message: message})
}

func encodeFrame(header, body interface{}) ([]byte, error) {
	headerBytes, err := encMode.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame header")
	}
	bodyBytes, err := encMode.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame body")
	}

	var buf bytes.Buffer
	buf.Write(headerBytes)
	buf.Write(bodyBytes)
	return buf.Bytes(), nil
}

// Decode splits a raw frame into its header and body CBOR byte strings by
// decoding two concatenated top-level CBOR items. It is primarily used by
// tests exercising the wire format end-to-end.
func Decode(frame []byte) (header, body []byte, err error) {
	dec := cbor.NewDecoder(bytes.NewReader(frame))

	var headerRaw cbor.RawMessage
	if err := dec.Decode(&headerRaw); err != nil {
		return nil, nil, errors.Wrap(err, "decode frame header")
	}
	var bodyRaw cbor.RawMessage
	if err := dec.Decode(&bodyRaw); err != nil {
		return nil, nil, errors.Wrap(err, "decode frame body")
	}
	return headerRaw, bodyRaw, nil
}
