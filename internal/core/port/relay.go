package port

import (
	"context"

	"github.com/sorenkv/glance/internal/core/domain"
)

// CandidateRelay exchanges connectivity candidates between the two sides of
// a call without requiring both to be present at once. Feeds are append-only
// and ordered: a subscriber first replays everything published so far, then
// receives new candidates in publish order, each exactly once.
type CandidateRelay interface {
	Publish(ctx context.Context, id domain.CallID, dir domain.Direction, c domain.Candidate) error

	// Subscribe returns a feed that replays history then follows live
	// publishes. The channel closes when ctx is cancelled or the call's
	// feeds are dropped.
	Subscribe(ctx context.Context, id domain.CallID, dir domain.Direction) (<-chan domain.Candidate, error)

	// Drop closes both directions' feeds for a dead call.
	Drop(id domain.CallID)
}
