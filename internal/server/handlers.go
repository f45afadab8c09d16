package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pff-protocol/presence-core/internal/authreq"
	"github.com/pff-protocol/presence-core/internal/device"
)

type createRequestBody struct {
	IdentityAnchor string       `json:"identity_anchor"`
	Device         device.Info  `json:"device"`
	Geo            *authreq.Geo `json:"geo,omitempty"`
}

type createRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid_json", "request body is not valid JSON", http.StatusBadRequest)
		return
	}
	if body.IdentityAnchor == "" {
		writeError(w, "missing_identity_anchor", "identity_anchor is required", http.StatusBadRequest)
		return
	}
	if body.Device.Type == "" {
		body.Device.Type = device.TypeUnknown
	}

	req, err := s.broker.CreateRequest(r.Context(), body.IdentityAnchor, body.Device, body.Geo)
	if err != nil {
		if errors.Is(err, authreq.ErrRateLimited) {
			writeError(w, "rate_limited", "too many authorization requests for this identity", http.StatusTooManyRequests)
			return
		}
		writeError(w, "create_failed", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, createRequestResponse{
		RequestID: req.ID,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type resolveRequestBody struct {
	Decision string        `json:"decision"`
	Token    authreq.Token `json:"token"`
}

type resolveRequestResponse struct {
	Status         string `json:"status"`
	BindingSkipped bool   `json:"binding_skipped,omitempty"`
	BindingReason  string `json:"binding_reason,omitempty"`
}

func (s *Server) handleResolveRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body resolveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid_json", "request body is not valid JSON", http.StatusBadRequest)
		return
	}

	var decision authreq.Decision
	switch body.Decision {
	case string(authreq.DecisionApprove):
		decision = authreq.DecisionApprove
	case string(authreq.DecisionDeny):
		decision = authreq.DecisionDeny
	default:
		writeError(w, "invalid_decision", "decision must be APPROVE or DENY", http.StatusBadRequest)
		return
	}

	out, err := s.broker.Resolve(r.Context(), id, body.Token, decision)
	switch {
	case err == nil:
	case errors.Is(err, authreq.ErrInvalidToken):
		writeError(w, "invalid_token", "approver token is missing or malformed", http.StatusUnauthorized)
		return
	case errors.Is(err, authreq.ErrAnchorMismatch):
		writeError(w, "anchor_mismatch", "approver token was issued for a different identity", http.StatusForbidden)
		return
	case errors.Is(err, authreq.ErrRequestNotFound):
		writeError(w, "not_found", "no such authorization request", http.StatusNotFound)
		return
	case errors.Is(err, authreq.ErrNotPending):
		writeError(w, "not_pending", "request already resolved or expired", http.StatusConflict)
		return
	default:
		writeError(w, "resolve_failed", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resolveRequestResponse{
		Status:         string(out.Status),
		BindingSkipped: out.BindingSkipped,
		BindingReason:  out.BindingReason,
	})
}

type requestStatusResponse struct {
	RequestID string       `json:"request_id"`
	Status    string       `json:"status"`
	Device    device.Info  `json:"device"`
	Geo       *authreq.Geo `json:"geo,omitempty"`
	CreatedAt string       `json:"created_at"`
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	req, err := s.broker.Get(r.Context(), id)
	if errors.Is(err, authreq.ErrRequestNotFound) {
		writeError(w, "not_found", "no such authorization request", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "read_failed", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, requestStatusResponse{
		RequestID: req.ID,
		Status:    string(req.Status),
		Device:    req.Device,
		Geo:       req.Geo,
		CreatedAt: req.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "name": s.config.Server.Name})
}
