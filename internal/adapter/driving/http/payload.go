package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
)

type createCallRequest struct {
	ReceiverID string                    `json:"receiver_id"`
	Offer      domain.SessionDescription `json:"offer"`
}

type createCallResponse struct {
	CallID string `json:"call_id"`
}

type callPayload struct {
	CallID   string                    `json:"call_id"`
	CallerID string                    `json:"caller_id"`
	Offer    domain.SessionDescription `json:"offer"`
}

type incomingCallsResponse struct {
	Calls []callPayload `json:"calls"`
}

type answerCallRequest struct {
	Answer domain.SessionDescription `json:"answer"`
}

type publishCandidateRequest struct {
	Direction string           `json:"direction"`
	Candidate domain.Candidate `json:"candidate"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// callEventPayload is one frame on the call events feed.
type callEventPayload struct {
	Type   string                     `json:"type"`
	Answer *domain.SessionDescription `json:"answer,omitempty"`
}

func toCallPayload(c domain.IncomingCall) callPayload {
	return callPayload{
		CallID:   c.CallID.String(),
		CallerID: c.CallerID.String(),
		Offer:    c.Offer,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses with a
// human-readable reason, so clients can tell "doesn't exist" from "not
// yours" from "already handled".
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not your call"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "call not found"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "call already handled"})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
