package coordinator

import (
	"context"

	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

// Signaling is the coordinator's view of the signaling entry points. The
// HTTP client implements it against a remote server; tests fake it.
type Signaling interface {
	CreateCall(ctx context.Context, receiverID domain.UserID, offer domain.SessionDescription) (domain.CallID, error)
	Incoming(ctx context.Context) ([]domain.IncomingCall, error)
	Lookup(ctx context.Context, id domain.CallID) (domain.IncomingCall, error)
	Accept(ctx context.Context, id domain.CallID, answer domain.SessionDescription) error
	End(ctx context.Context, id domain.CallID) error
	PublishCandidate(ctx context.Context, id domain.CallID, dir domain.Direction, c domain.Candidate) error
	CandidateFeed(ctx context.Context, id domain.CallID, dir domain.Direction) (<-chan domain.Candidate, error)
	CallEvents(ctx context.Context, id domain.CallID) (<-chan port.CallEvent, error)
}

// PeerSession is the standard peer-connection primitive the coordinator
// feeds. Media tracks are attached when the session is built; the
// coordinator only moves descriptions and candidates in and out.
type PeerSession interface {
	// OnCandidate registers the sink for locally discovered candidates.
	// Must be called before the local description is created, so no
	// candidate is lost to gathering starting early.
	OnCandidate(fn func(domain.Candidate))

	CreateOffer(ctx context.Context) (domain.SessionDescription, error)

	// AcceptAnswer applies the peer's answer as the remote description.
	AcceptAnswer(answer domain.SessionDescription) error

	// CreateAnswer applies the peer's offer as the remote description and
	// produces the local answer.
	CreateAnswer(ctx context.Context, offer domain.SessionDescription) (domain.SessionDescription, error)

	AddCandidate(c domain.Candidate) error

	// Close tears the transport down and releases local media.
	Close() error
}
