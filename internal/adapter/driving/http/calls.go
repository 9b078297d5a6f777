package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sorenkv/glance/internal/core/domain"
)

// CreateCall starts a new pending call; the authenticated identity becomes
// the caller.
func (h *Handler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body"})
		return
	}

	call, err := h.CallService.Start(r.Context(), identityFrom(r), domain.UserID(req.ReceiverID), req.Offer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createCallResponse{CallID: call.ID.String()})
}

// IncomingCalls lists pending calls addressed to the authenticated identity,
// newest first.
func (h *Handler) IncomingCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := h.CallService.Incoming(r.Context(), identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	payload := make([]callPayload, 0, len(calls))
	for _, c := range calls {
		payload = append(payload, toCallPayload(c))
	}
	writeJSON(w, http.StatusOK, incomingCallsResponse{Calls: payload})
}

// LookupCall returns a single pending call addressed to the authenticated
// identity; anything else is a 404.
func (h *Handler) LookupCall(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))

	call, err := h.CallService.Lookup(r.Context(), id, identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCallPayload(call))
}

// AnswerCall applies the receiver's answer through the accept transaction.
func (h *Handler) AnswerCall(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))

	var req answerCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body"})
		return
	}

	if err := h.CallService.Accept(r.Context(), id, identityFrom(r), req.Answer); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "call accepted"})
}

// EndCall deletes the call. Repeating the request succeeds: ending a call
// that is already gone is a benign race, not an error.
func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))

	if err := h.CallService.End(r.Context(), id, identityFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "call ended"})
}

// PublishCandidate appends one connectivity candidate to a direction's feed.
func (h *Handler) PublishCandidate(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))

	var req publishCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body"})
		return
	}

	err := h.RelayService.Publish(r.Context(), id, identityFrom(r), domain.Direction(req.Direction), req.Candidate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{Message: "candidate accepted"})
}
