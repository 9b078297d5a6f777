package port

import (
	"context"

	"github.com/sorenkv/glance/internal/core/domain"
)

type CallEventType string

const (
	// CallAccepted carries the answer written by the receiver.
	CallAccepted CallEventType = "accepted"
	// CallEnded is the terminal event; the watch channel closes after it.
	CallEnded CallEventType = "ended"
)

type CallEvent struct {
	Type   CallEventType
	Answer *domain.SessionDescription
}

// CallStore is the durable record of one call's negotiation state.
// Accept and Delete must be serializable per call ID: concurrent accepts
// must not both succeed, and an accept racing a delete resolves to whichever
// committed first, with the loser failing cleanly.
type CallStore interface {
	// Create allocates a fresh ID and writes the call as pending.
	Create(ctx context.Context, callerID, receiverID domain.UserID, offer domain.SessionDescription) (*domain.Call, error)

	Get(ctx context.Context, id domain.CallID) (*domain.Call, error)

	// FindPending returns pending calls addressed to receiverID, newest first.
	FindPending(ctx context.Context, receiverID domain.UserID) ([]*domain.Call, error)

	// Accept atomically verifies status=pending and requesterID=receiverID,
	// then writes the answer. Reports ErrForbidden / ErrConflict / ErrNotFound
	// without applying a partial update.
	Accept(ctx context.Context, id domain.CallID, requesterID domain.UserID, answer domain.SessionDescription) error

	// Delete removes the call after verifying the requester is a participant.
	// Deleting an absent call is a no-op, not an error.
	Delete(ctx context.Context, id domain.CallID, requesterID domain.UserID) error

	// Watch streams lifecycle events for one call, starting with the current
	// state (an already-written answer is replayed). The channel closes when
	// the call ends or ctx is cancelled.
	Watch(ctx context.Context, id domain.CallID) (<-chan CallEvent, error)
}
