// Package emitevent implements the tools.ozone.moderation.emitEvent XRPC
// method: bearer-authenticated creation of one or more labels on a subject.
package emitevent

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/teranos/labelmaker/crypto"
	"github.com/teranos/labelmaker/label"
	"github.com/teranos/labelmaker/sequencer"
	"github.com/teranos/labelmaker/xrpcerr"
)

// LexiconMethod is the expected `lxm` claim on a bearer JWT presented to
// this endpoint.
const LexiconMethod = "tools.ozone.moderation.emitEvent"

const modEventLabelType = "tools.ozone.moderation.defs#modEventLabel"

// PolicyFunc decides whether an authenticated issuer DID may emit events.
// The default policy (see New) requires the issuer to be the labeler
// itself.
type PolicyFunc func(ctx context.Context, issuerDID string) bool

// repoRef / strongRef mirror the two atproto subject reference shapes.
type subjectRef struct {
	Type string `json:"$type"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
	CID  string `json:"cid,omitempty"`
}

type eventPayload struct {
	Type            string   `json:"$type"`
	CreateLabelVals []string `json:"createLabelVals"`
	NegateLabelVals []string `json:"negateLabelVals"`
}

// Request is the body of an emitEvent call.
type Request struct {
	Event           eventPayload `json:"event"`
	Subject         subjectRef   `json:"subject"`
	SubjectBlobCids []string     `json:"subjectBlobCids"`
	CreatedBy       string       `json:"createdBy"`
}

// Response mirrors the request shape back with the assigned id and
// server-stamped createdAt.
type Response struct {
	ID              int64        `json:"id"`
	Event           eventPayload `json:"event"`
	Subject         subjectRef   `json:"subject"`
	SubjectBlobCids []string     `json:"subjectBlobCids"`
	CreatedBy       string       `json:"createdBy"`
	CreatedAt       string       `json:"createdAt"`
}

// Handler serves POST /xrpc/tools.ozone.moderation.emitEvent.
type Handler struct {
	Resolver   *crypto.Resolver
	Sequencer  *sequencer.Sequencer
	LabelerDID string
	Policy     PolicyFunc
}

// New constructs a Handler. If policy is nil, the default policy permits
// only the labeler's own DID to emit events.
func New(resolver *crypto.Resolver, seq *sequencer.Sequencer, labelerDID string, policy PolicyFunc) *Handler {
	if policy == nil {
		policy = func(_ context.Context, issuerDID string) bool { return issuerDID == labelerDID }
	}
	return &Handler{Resolver: resolver, Sequencer: seq, LabelerDID: labelerDID, Policy: policy}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, xerr := bearerToken(r)
	if xerr != nil {
		writeError(w, xerr)
		return
	}

	claims, err := crypto.VerifyJWT(ctx, h.Resolver, token, h.LabelerDID, LexiconMethod)
	if err != nil {
		writeError(w, asXrpcErr(err))
		return
	}

	if !h.Policy(ctx, claims.Issuer) {
		writeError(w, xrpcerr.New(xrpcerr.AuthRequired, "issuer is not permitted to emit events"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, xrpcerr.Wrap(xrpcerr.InvalidRequest, "malformed request body", err))
		return
	}

	if req.Event.Type != modEventLabelType {
		writeError(w, xrpcerr.New(xrpcerr.InvalidRequest, "event.$type must be modEventLabel"))
		return
	}
	if len(req.Event.CreateLabelVals) == 0 && len(req.Event.NegateLabelVals) == 0 {
		writeError(w, xrpcerr.New(xrpcerr.InvalidRequest, "at least one of createLabelVals or negateLabelVals is required"))
		return
	}

	draft, xerr := subjectDraft(req.Subject)
	if xerr != nil {
		writeError(w, xerr)
		return
	}

	created, err := h.Sequencer.CreateLabels(ctx, draft, req.Event.CreateLabelVals, req.Event.NegateLabelVals)
	if err != nil {
		writeError(w, xrpcerr.Wrap(xrpcerr.InternalServerError, "failed to create labels", err))
		return
	}

	resp := Response{
		ID:              created[0].ID,
		Event:           req.Event,
		Subject:         req.Subject,
		SubjectBlobCids: req.SubjectBlobCids,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       label.NowISO8601(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func subjectDraft(subject subjectRef) (label.Draft, *xrpcerr.Error) {
	switch {
	case strings.HasSuffix(subject.Type, "repoRef") && subject.DID != "":
		return label.Draft{URI: subject.DID}, nil
	case strings.HasSuffix(subject.Type, "strongRef") && subject.URI != "":
		return label.Draft{URI: subject.URI, CID: subject.CID}, nil
	default:
		return label.Draft{}, xrpcerr.New(xrpcerr.InvalidRequest, "subject must be a repoRef or strongRef")
	}
}

func bearerToken(r *http.Request) (string, *xrpcerr.Error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", xrpcerr.New(xrpcerr.AuthRequired, "missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", xrpcerr.New(xrpcerr.MissingJwt, "Authorization header is not a bearer token")
	}
	return strings.TrimPrefix(header, prefix), nil
}

func asXrpcErr(err error) *xrpcerr.Error {
	if xe, ok := xrpcerr.As(err); ok {
		return xe
	}
	return xrpcerr.Wrap(xrpcerr.InternalServerError, "jwt verification failed", err)
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
