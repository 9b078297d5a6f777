package service

import (
	"context"

	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

// RelayService guards the candidate relay: only participants of a call may
// touch its feeds, and a participant may publish only to their own side.
type RelayService struct {
	store port.CallStore
	relay port.CandidateRelay
}

func NewRelayService(store port.CallStore, relay port.CandidateRelay) *RelayService {
	return &RelayService{
		store: store,
		relay: relay,
	}
}

// ownDirection maps a participant to the side they publish on.
func ownDirection(call *domain.Call, id domain.UserID) (domain.Direction, bool) {
	switch id {
	case call.CallerID:
		return domain.FromCaller, true
	case call.ReceiverID:
		return domain.FromReceiver, true
	default:
		return "", false
	}
}

func (s *RelayService) Publish(ctx context.Context, id domain.CallID, requesterID domain.UserID, dir domain.Direction, c domain.Candidate) error {
	if !dir.Valid() {
		return &domain.ValidationError{Field: "direction"}
	}
	if c.IsZero() {
		return &domain.ValidationError{Field: "candidate"}
	}

	call, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	own, ok := ownDirection(call, requesterID)
	if !ok || own != dir {
		return domain.ErrForbidden
	}
	return s.relay.Publish(ctx, id, dir, c)
}

// Subscribe opens a replay-then-live candidate feed. Either participant may
// read either direction; everyone else is forbidden.
func (s *RelayService) Subscribe(ctx context.Context, id domain.CallID, requesterID domain.UserID, dir domain.Direction) (<-chan domain.Candidate, error) {
	if !dir.Valid() {
		return nil, &domain.ValidationError{Field: "direction"}
	}

	call, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !call.HasParticipant(requesterID) {
		return nil, domain.ErrForbidden
	}
	return s.relay.Subscribe(ctx, id, dir)
}
