package server

import (
	"encoding/json"
	"net/http"

	"github.com/teranos/labelmaker/version"
	"github.com/teranos/labelmaker/xrpcerr"
)

// handleHealth probes the store and reports the labeler's version. It
// returns 200 on a successful probe, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"version": versionInfo.Version,
			"error":   "store not yet initialized",
		})
		return
	}

	if _, err := s.store.MaxID(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"version": versionInfo.Version,
			"error":   err.Error(),
		})
		return
	}

	body := map[string]string{"version": versionInfo.Version}
	if pub, err := s.publicKey(); err == nil {
		body["signing_key"] = pub.DIDKey()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleMethodNotImplemented answers any unrecognized /xrpc/ route.
func (s *Server) handleMethodNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, xrpcerr.Status(xrpcerr.MethodNotImplemented), map[string]string{
		"error":   string(xrpcerr.MethodNotImplemented),
		"message": "unknown XRPC method: " + r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
