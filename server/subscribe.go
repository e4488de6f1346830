package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teranos/labelmaker/broadcast"
	"github.com/teranos/labelmaker/xrpcerr"
)

// WebSocket timeout constants, mirrored from Gorilla's recommended chat
// example: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const subscribeStreamName = "com.atproto.label.subscribeLabels"

// handleSubscribeLabels upgrades the connection and streams framed label
// messages starting from the optional ?cursor= query parameter.
func (s *Server) handleSubscribeLabels(w http.ResponseWriter, r *http.Request) {
	var cursor *int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, xrpcerr.Status(xrpcerr.InvalidRequest), map[string]string{
				"error":   string(xrpcerr.InvalidRequest),
				"message": "cursor must be an integer",
			})
			return
		}
		cursor = &v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugw("subscribeLabels upgrade failed", "error", err)
		return
	}

	sub := s.broadcaster.Subscribe(r.Context(), subscribeStreamName, cursor)
	defer s.broadcaster.Unsubscribe(subscribeStreamName, sub)

	go s.writePump(conn, sub)
	readPump(conn)
}

// writePump drains sub's message channel onto the WebSocket connection
// until it closes, sending periodic pings to detect a dead peer.
func (s *Server) writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames but keeps the connection's read deadline
// alive so a dropped client is detected promptly; subscribeLabels carries
// no client-to-server payload beyond the initial cursor.
func readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
