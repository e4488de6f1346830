// Package querylabels implements the com.atproto.label.queryLabels XRPC
// method: a paginated, filterable read over the label store.
package querylabels

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/store"
	"github.com/teranos/labelmaker/xrpcerr"
)

const (
	defaultLimit = 50
	minLimit     = 1
	maxLimit     = 250
)

// Response is the wire shape of a successful queryLabels call.
type Response struct {
	Cursor string           `json:"cursor"`
	Labels []label.Formatted `json:"labels"`
}

// Handler serves GET /xrpc/com.atproto.label.queryLabels against st.
type Handler struct {
	Store store.Store
}

func New(st store.Store) *Handler {
	return &Handler{Store: st}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, xerr := parseParams(r)
	if xerr != nil {
		writeError(w, xerr)
		return
	}

	labels, err := h.Store.Query(r.Context(), params)
	if err != nil {
		writeError(w, xrpcerr.Wrap(xrpcerr.InternalServerError, "query failed", err))
		return
	}

	resp := Response{Cursor: "0", Labels: label.FormatAll(labels)}
	if n := len(labels); n > 0 {
		resp.Cursor = strconv.FormatInt(labels[n-1].ID, 10)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseParams(r *http.Request) (store.QueryParams, *xrpcerr.Error) {
	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < minLimit || v > maxLimit {
			return store.QueryParams{}, xrpcerr.New(xrpcerr.InvalidRequest, "limit must be an integer in [1, 250]")
		}
		limit = v
	}

	cursor := int64(0)
	if raw := q.Get("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return store.QueryParams{}, xrpcerr.New(xrpcerr.InvalidRequest, "cursor must be an integer")
		}
		cursor = v
	}

	uriPatterns := q["uriPatterns"]
	for _, pat := range uriPatterns {
		if _, _, err := store.CompilePattern(pat); err != nil {
			return store.QueryParams{}, xrpcerr.New(xrpcerr.InvalidRequest, "uriPatterns wildcard must be trailing")
		}
	}

	return store.QueryParams{
		URIPatterns: uriPatterns,
		Sources:     q["sources"],
		AfterID:     cursor,
		Limit:       limit,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, xerr *xrpcerr.Error) {
	writeJSON(w, xrpcerr.Status(xerr.Kind), map[string]string{
		"error":   string(xerr.Kind),
		"message": xerr.Message,
	})
}
