package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/teranos/labelmaker/frame"
	"github.com/teranos/labelmaker/label"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	priv, err := indigocrypto.GeneratePrivateKeyK256()
	require.NoError(t, err)

	s, err := New(Config{
		DID:        "did:plc:labeler",
		SigningKey: hex.EncodeToString(priv.Bytes()),
		StorePath:  filepath.Join(t.TempDir(), "labels.db"),
	})
	require.NoError(t, err)
	require.NoError(t, s.store.Init(context.Background()))
	t.Cleanup(func() { s.store.Close() })
	s.ready.Store(true)
	return s
}

func newTestHTTPServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleHealth_ReportsReady(t *testing.T) {
	s := newTestServer(t)
	ts := newTestHTTPServer(t, s)

	resp, err := http.Get(ts.URL + "/xrpc/_health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["version"])
}

func TestHandleHealth_ReportsUnavailableWhenNotReady(t *testing.T) {
	s := newTestServer(t)
	s.ready.Store(false)
	ts := newTestHTTPServer(t, s)

	resp, err := http.Get(ts.URL + "/xrpc/_health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownXRPCRoute_ReturnsMethodNotImplemented(t *testing.T) {
	s := newTestServer(t)
	ts := newTestHTTPServer(t, s)

	resp, err := http.Get(ts.URL + "/xrpc/app.bsky.actor.getProfile")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "MethodNotImplemented", body["error"])
}

func TestSubscribeLabels_DeliversLiveLabel(t *testing.T) {
	s := newTestServer(t)
	ts := newTestHTTPServer(t, s)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/xrpc/com.atproto.label.subscribeLabels"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = s.sequencer.CreateLabel(context.Background(), label.Draft{URI: "did:plc:target", Val: "spam"})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	_, body, err := frame.Decode(raw)
	require.NoError(t, err)
	var labelsBody frame.LabelsBody
	require.NoError(t, cbor.Unmarshal(body, &labelsBody))
	require.EqualValues(t, 1, labelsBody.Seq)
}

func TestSubscribeLabels_FutureCursorClosesConnection(t *testing.T) {
	s := newTestServer(t)
	ts := newTestHTTPServer(t, s)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/xrpc/com.atproto.label.subscribeLabels?cursor=99"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	_, body, err := frame.Decode(raw)
	require.NoError(t, err)
	var errBody frame.ErrorBody
	require.NoError(t, cbor.Unmarshal(body, &errBody))
	require.Equal(t, "FutureCursor", errBody.Error)
}
