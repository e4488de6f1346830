package server

import "net/http"

// setupRoutes registers the labeler's fixed route table.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /xrpc/com.atproto.label.queryLabels", s.queryHandler.ServeHTTP)
	mux.HandleFunc("POST /xrpc/tools.ozone.moderation.emitEvent", s.emitHandler.ServeHTTP)
	mux.HandleFunc("GET /xrpc/com.atproto.label.subscribeLabels", s.handleSubscribeLabels)
	mux.HandleFunc("GET /xrpc/_health", s.handleHealth)
	mux.HandleFunc("/xrpc/", s.handleMethodNotImplemented)
}
