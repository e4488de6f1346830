package broadcast

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/teranos/labelmaker/frame"
	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/sequencer"
	"github.com/teranos/labelmaker/store/sqlite"
)

const testStream = "com.atproto.label.subscribeLabels"

func newTestBroadcaster(t *testing.T) (*Broadcaster, *sequencer.Sequencer) {
	t.Helper()
	st := sqlite.New(filepath.Join(t.TempDir(), "labels.db"), nil)
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { st.Close() })

	priv, err := crypto.GeneratePrivateKeyK256()
	require.NoError(t, err)

	b := New(st)
	seq := sequencer.New(st, priv, "did:plc:aaa", b)
	return b, seq
}

func recvWithTimeout(t *testing.T, sub *Subscriber) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestSubscribe_FutureCursorTerminates(t *testing.T) {
	b, _ := newTestBroadcaster(t)

	cursor := int64(99)
	sub := b.Subscribe(context.Background(), testStream, &cursor)

	msg := recvWithTimeout(t, sub)
	_, body, err := frame.Decode(msg)
	require.NoError(t, err)

	var errBody frame.ErrorBody
	require.NoError(t, cbor.Unmarshal(body, &errBody))
	require.Equal(t, "FutureCursor", errBody.Error)

	_, ok := <-sub.Messages()
	require.False(t, ok, "channel should be closed after terminal error")
}

func TestSubscribe_LiveFanOutToMultipleSubscribers(t *testing.T) {
	b, seq := newTestBroadcaster(t)

	sub1 := b.Subscribe(context.Background(), testStream, nil)
	sub2 := b.Subscribe(context.Background(), testStream, nil)

	_, err := seq.CreateLabel(context.Background(), label.Draft{URI: "did:plc:x", Val: "a"})
	require.NoError(t, err)

	for _, sub := range []*Subscriber{sub1, sub2} {
		msg := recvWithTimeout(t, sub)
		_, body, err := frame.Decode(msg)
		require.NoError(t, err)
		var labelsBody frame.LabelsBody
		require.NoError(t, cbor.Unmarshal(body, &labelsBody))
		require.EqualValues(t, 1, labelsBody.Seq)
	}
}

func TestSubscribe_ReplayThenLiveNoGap(t *testing.T) {
	b, seq := newTestBroadcaster(t)

	_, err := seq.CreateLabel(context.Background(), label.Draft{URI: "did:plc:a", Val: "v"})
	require.NoError(t, err)
	second, err := seq.CreateLabel(context.Background(), label.Draft{URI: "did:plc:b", Val: "v"})
	require.NoError(t, err)

	cursor := int64(0)
	sub := b.Subscribe(context.Background(), testStream, &cursor)

	var seqs []int64
	for i := 0; i < 2; i++ {
		msg := recvWithTimeout(t, sub)
		_, body, err := frame.Decode(msg)
		require.NoError(t, err)
		var labelsBody frame.LabelsBody
		require.NoError(t, cbor.Unmarshal(body, &labelsBody))
		seqs = append(seqs, labelsBody.Seq)
	}
	require.Equal(t, []int64{1, 2}, seqs)

	third, err := seq.CreateLabel(context.Background(), label.Draft{URI: "did:plc:c", Val: "v"})
	require.NoError(t, err)
	require.Equal(t, second.ID+1, third.ID)

	msg := recvWithTimeout(t, sub)
	_, body, err := frame.Decode(msg)
	require.NoError(t, err)
	var labelsBody frame.LabelsBody
	require.NoError(t, cbor.Unmarshal(body, &labelsBody))
	require.Equal(t, third.ID, labelsBody.Seq)
}
