package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

// CallService drives the call lifecycle: pending -> accepted -> removed,
// with a direct pending -> removed edge. It owns input validation and leaves
// the per-call atomicity of accept/delete to the store transaction.
type CallService struct {
	store port.CallStore
	relay port.CandidateRelay
}

func NewCallService(store port.CallStore, relay port.CandidateRelay) *CallService {
	return &CallService{
		store: store,
		relay: relay,
	}
}

// Start creates a new pending call. Any authenticated identity may call;
// it becomes the caller.
func (s *CallService) Start(ctx context.Context, callerID, receiverID domain.UserID, offer domain.SessionDescription) (*domain.Call, error) {
	if receiverID == "" {
		return nil, &domain.ValidationError{Field: "receiver_id"}
	}
	if offer.IsZero() {
		return nil, &domain.ValidationError{Field: "offer"}
	}

	call, err := s.store.Create(ctx, callerID, receiverID, offer)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("call_id", call.ID.String()).
		Str("caller_id", callerID.String()).
		Str("receiver_id", receiverID.String()).
		Msg("Call created")
	return call, nil
}

// Incoming lists pending calls addressed to receiverID, newest first.
func (s *CallService) Incoming(ctx context.Context, receiverID domain.UserID) ([]domain.IncomingCall, error) {
	calls, err := s.store.FindPending(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.IncomingCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, domain.IncomingCall{
			CallID:   c.ID,
			CallerID: c.CallerID,
			Offer:    c.Offer,
		})
	}
	return out, nil
}

// Lookup returns a single call only if it is still pending and addressed to
// requesterID. Anything else reads as not found, so strangers cannot probe
// for call existence.
func (s *CallService) Lookup(ctx context.Context, id domain.CallID, requesterID domain.UserID) (domain.IncomingCall, error) {
	if id == "" {
		return domain.IncomingCall{}, &domain.ValidationError{Field: "call_id"}
	}

	call, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.IncomingCall{}, err
	}
	if call.Status != domain.StatusPending || call.ReceiverID != requesterID {
		return domain.IncomingCall{}, domain.ErrNotFound
	}
	return domain.IncomingCall{
		CallID:   call.ID,
		CallerID: call.CallerID,
		Offer:    call.Offer,
	}, nil
}

// Accept writes the receiver's answer. Both preconditions are independent
// and both are enforced: the requester must be the receiver (forbidden
// otherwise) and the call must still be pending (conflict otherwise).
func (s *CallService) Accept(ctx context.Context, id domain.CallID, requesterID domain.UserID, answer domain.SessionDescription) error {
	if id == "" {
		return &domain.ValidationError{Field: "call_id"}
	}
	if answer.IsZero() {
		return &domain.ValidationError{Field: "answer"}
	}

	if err := s.store.Accept(ctx, id, requesterID, answer); err != nil {
		return err
	}

	log.Info().
		Str("call_id", id.String()).
		Str("receiver_id", requesterID.String()).
		Msg("Call accepted")
	return nil
}

// End deletes the call and drops its candidate feeds. Either participant may
// end at any time; ending an already-gone call succeeds, since "end call"
// racing the peer's own "end call" is an expected outcome.
func (s *CallService) End(ctx context.Context, id domain.CallID, requesterID domain.UserID) error {
	if id == "" {
		return &domain.ValidationError{Field: "call_id"}
	}

	if err := s.store.Delete(ctx, id, requesterID); err != nil {
		return err
	}
	s.relay.Drop(id)

	log.Info().
		Str("call_id", id.String()).
		Str("user_id", requesterID.String()).
		Msg("Call ended")
	return nil
}

// Watch streams lifecycle events of a call to one of its participants.
func (s *CallService) Watch(ctx context.Context, id domain.CallID, requesterID domain.UserID) (<-chan port.CallEvent, error) {
	call, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !call.HasParticipant(requesterID) {
		return nil, domain.ErrForbidden
	}
	return s.store.Watch(ctx, id)
}
