package domain

import (
	"time"
)

type CallStatus string

const (
	StatusPending  CallStatus = "pending"
	StatusAccepted CallStatus = "accepted"
)

// SessionDescription is one half of the offer/answer exchange. The core
// treats it as opaque and only relays it between the two peers.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (d SessionDescription) IsZero() bool {
	return d.Type == "" && d.SDP == ""
}

// Call is one negotiation session between exactly two identities.
// CallerID, ReceiverID and Offer are immutable once set; Answer is written
// at most once, while the call is still pending.
type Call struct {
	ID         CallID
	CallerID   UserID
	ReceiverID UserID
	Status     CallStatus
	Offer      SessionDescription
	Answer     *SessionDescription
	CreatedAt  time.Time
	AnsweredAt time.Time
}

func NewCall(callerID, receiverID UserID, offer SessionDescription) (*Call, error) {
	if receiverID == "" {
		return nil, &ValidationError{Field: "receiver_id"}
	}
	if offer.IsZero() {
		return nil, &ValidationError{Field: "offer"}
	}
	return &Call{
		ID:         NewCallID(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     StatusPending,
		Offer:      offer,
	}, nil
}

// HasParticipant reports whether id is either side of the call.
func (c *Call) HasParticipant(id UserID) bool {
	return id == c.CallerID || id == c.ReceiverID
}

// Clone returns a deep copy so store internals never alias caller-held state.
func (c *Call) Clone() *Call {
	out := *c
	if c.Answer != nil {
		answer := *c.Answer
		out.Answer = &answer
	}
	return &out
}

// IncomingCall is the projection of a pending call shown to its receiver.
type IncomingCall struct {
	CallID   CallID
	CallerID UserID
	Offer    SessionDescription
}
