package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

// record wraps a call with a creation sequence number so FindPending stays
// deterministically ordered even when two creates land on the same tick.
type record struct {
	call *domain.Call
	seq  uint64
}

// Store keeps call records in memory behind a single mutex, which gives
// accept/delete the per-call serializability the signaling contract needs.
// implements port.CallStore
type Store struct {
	mu       sync.Mutex
	seq      uint64
	calls    map[domain.CallID]*record
	watchers map[domain.CallID][]chan port.CallEvent
}

func NewStore() *Store {
	return &Store{
		calls:    make(map[domain.CallID]*record),
		watchers: make(map[domain.CallID][]chan port.CallEvent),
	}
}

func (s *Store) Create(ctx context.Context, callerID, receiverID domain.UserID, offer domain.SessionDescription) (*domain.Call, error) {
	call, err := domain.NewCall(callerID, receiverID, offer)
	if err != nil {
		return nil, err
	}
	call.CreatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.calls[call.ID] = &record{call: call, seq: s.seq}
	return call.Clone(), nil
}

func (s *Store) Get(ctx context.Context, id domain.CallID) (*domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.calls[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.call.Clone(), nil
}

func (s *Store) FindPending(ctx context.Context, receiverID domain.UserID) ([]*domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*record
	for _, rec := range s.calls {
		if rec.call.Status == domain.StatusPending && rec.call.ReceiverID == receiverID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].seq > recs[j].seq
	})

	out := make([]*domain.Call, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.call.Clone())
	}
	return out, nil
}

// Accept is the one read-modify-write transaction in the system: both
// preconditions are checked and the answer written under the same lock, so
// concurrent accepts resolve to exactly one winner.
func (s *Store) Accept(ctx context.Context, id domain.CallID, requesterID domain.UserID, answer domain.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.calls[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.call.ReceiverID != requesterID {
		return domain.ErrForbidden
	}
	if rec.call.Status != domain.StatusPending {
		return domain.ErrConflict
	}

	a := answer
	rec.call.Status = domain.StatusAccepted
	rec.call.Answer = &a
	rec.call.AnsweredAt = time.Now()

	s.notify(id, port.CallEvent{Type: port.CallAccepted, Answer: &a}, false)
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.CallID, requesterID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.calls[id]
	if !ok {
		// peer got there first, benign
		return nil
	}
	if !rec.call.HasParticipant(requesterID) {
		return domain.ErrForbidden
	}

	delete(s.calls, id)
	s.notify(id, port.CallEvent{Type: port.CallEnded}, true)
	return nil
}

func (s *Store) Watch(ctx context.Context, id domain.CallID) (<-chan port.CallEvent, error) {
	s.mu.Lock()

	rec, ok := s.calls[id]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}

	// A watch delivers at most two events, so the buffer guarantees notify
	// never blocks on a slow consumer.
	ch := make(chan port.CallEvent, 2)
	if rec.call.Status == domain.StatusAccepted {
		ch <- port.CallEvent{Type: port.CallAccepted, Answer: rec.call.Answer}
	}
	s.watchers[id] = append(s.watchers[id], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.watchers[id]
		for i, c := range chans {
			if c == ch {
				s.watchers[id] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}()

	return ch, nil
}

// notify fans an event out to the call's watchers; callers hold s.mu.
func (s *Store) notify(id domain.CallID, ev port.CallEvent, final bool) {
	for _, ch := range s.watchers[id] {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("call_id", id.String()).Msg("Watcher buffer full, dropping event")
		}
		if final {
			close(ch)
		}
	}
	if final {
		delete(s.watchers, id)
	}
}
