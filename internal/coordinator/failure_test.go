package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

// stubSignaling scripts entry-point outcomes so failure paths and duplicate
// notifications can be forced deterministically.
type stubSignaling struct {
	mu        sync.Mutex
	acceptErr error
	endErr    error
	endCalls  int

	events     chan port.CallEvent
	candidates chan domain.Candidate
	snapshots  [][]domain.IncomingCall
	polls      int
}

func newStubSignaling() *stubSignaling {
	return &stubSignaling{
		events:     make(chan port.CallEvent, 4),
		candidates: make(chan domain.Candidate, 4),
	}
}

func (s *stubSignaling) CreateCall(ctx context.Context, receiverID domain.UserID, offer domain.SessionDescription) (domain.CallID, error) {
	return "stub-call", nil
}

func (s *stubSignaling) Incoming(ctx context.Context) ([]domain.IncomingCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls >= len(s.snapshots) {
		return nil, nil
	}
	snap := s.snapshots[s.polls]
	s.polls++
	return snap, nil
}

func (s *stubSignaling) Lookup(ctx context.Context, id domain.CallID) (domain.IncomingCall, error) {
	return domain.IncomingCall{}, domain.ErrNotFound
}

func (s *stubSignaling) Accept(ctx context.Context, id domain.CallID, answer domain.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acceptErr
}

func (s *stubSignaling) End(ctx context.Context, id domain.CallID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCalls++
	return s.endErr
}

func (s *stubSignaling) PublishCandidate(ctx context.Context, id domain.CallID, dir domain.Direction, c domain.Candidate) error {
	return nil
}

func (s *stubSignaling) CandidateFeed(ctx context.Context, id domain.CallID, dir domain.Direction) (<-chan domain.Candidate, error) {
	return s.candidates, nil
}

func (s *stubSignaling) CallEvents(ctx context.Context, id domain.CallID) (<-chan port.CallEvent, error) {
	return s.events, nil
}

func TestCallerAppliesOnlyFirstAnswer(t *testing.T) {
	stub := newStubSignaling()
	peer := &fakePeer{}
	co := NewCoordinator(stub, peer, nil)

	if _, err := co.StartCall(context.Background(), "bob"); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}
	defer co.End(context.Background())

	// the store guarantees a single answer, but the watch may still
	// notify twice; only the first may reach the peer connection
	stub.events <- port.CallEvent{Type: port.CallAccepted, Answer: &testAnswer}
	stub.events <- port.CallEvent{Type: port.CallAccepted, Answer: &testAnswer}

	waitFor(t, "answer applied", func() bool {
		peer.mu.Lock()
		defer peer.mu.Unlock()
		return len(peer.remoteAnswers) >= 1
	})
	time.Sleep(50 * time.Millisecond)

	peer.mu.Lock()
	applied := len(peer.remoteAnswers)
	peer.mu.Unlock()
	if applied != 1 {
		t.Errorf("Expected exactly one applied answer, got %d", applied)
	}
}

func TestReceiverAbortsWhenCallAlreadyHandled(t *testing.T) {
	stub := newStubSignaling()
	stub.acceptErr = domain.ErrConflict
	peer := &fakePeer{}
	co := NewCoordinator(stub, peer, nil)

	inc := domain.IncomingCall{CallID: "stub-call", CallerID: "alice", Offer: testOffer}
	err := co.Answer(context.Background(), inc)
	if err == nil {
		t.Fatal("Expected an error for a conflicting accept")
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected wrapped ErrConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "no longer available") {
		t.Errorf("Expected a user-presentable reason, got %q", err)
	}
	if !peer.isClosed() {
		t.Error("Expected local teardown after aborted accept")
	}
	if co.Status() != StatusIdle {
		t.Errorf("Expected idle after abort, got %s", co.Status())
	}
}

func TestEndTearsDownLocallyEvenWhenDeleteFails(t *testing.T) {
	stub := newStubSignaling()
	stub.endErr = errors.New("signaling server unreachable")
	peer := &fakePeer{}
	co := NewCoordinator(stub, peer, nil)

	if _, err := co.StartCall(context.Background(), "bob"); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}

	co.End(context.Background())

	if !peer.isClosed() {
		t.Error("Peer session must close even when the delete fails")
	}
	if co.Status() != StatusIdle {
		t.Errorf("Expected idle after end, got %s", co.Status())
	}

	stub.mu.Lock()
	endCalls := stub.endCalls
	stub.mu.Unlock()
	if endCalls != 1 {
		t.Errorf("Expected one best-effort delete, got %d", endCalls)
	}
}

func TestPeerEndedEventTriggersTeardown(t *testing.T) {
	stub := newStubSignaling()
	peer := &fakePeer{}
	co := NewCoordinator(stub, peer, nil)

	if _, err := co.StartCall(context.Background(), "bob"); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}

	stub.events <- port.CallEvent{Type: port.CallEnded}

	waitFor(t, "local teardown", peer.isClosed)
	if co.Status() != StatusIdle {
		t.Errorf("Expected idle after peer hangup, got %s", co.Status())
	}
}

func TestStartCallRejectedWhileBusy(t *testing.T) {
	stub := newStubSignaling()
	co := NewCoordinator(stub, &fakePeer{}, nil)

	if _, err := co.StartCall(context.Background(), "bob"); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}
	defer co.End(context.Background())

	if _, err := co.StartCall(context.Background(), "carol"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
}

func TestDiscoveryDeliversFullSnapshots(t *testing.T) {
	stub := newStubSignaling()
	inc := domain.IncomingCall{CallID: "x", CallerID: "alice", Offer: testOffer}
	stub.snapshots = [][]domain.IncomingCall{
		{inc},
		{},
	}

	watcher := NewDiscoveryWatcher(stub, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := watcher.Watch(ctx)

	snap := recvSnapshot(t, feed)
	if len(snap) != 1 || snap[0].CallID != "x" {
		t.Fatalf("Expected snapshot with call x, got %+v", snap)
	}

	// the set shrinking between polls is normal; the watcher reports the
	// new full snapshot rather than a diff
	snap = recvSnapshot(t, feed)
	if len(snap) != 0 {
		t.Fatalf("Expected empty snapshot, got %+v", snap)
	}

	cancel()
	waitFor(t, "watch channel close", func() bool {
		select {
		case _, ok := <-feed:
			return !ok
		default:
			return false
		}
	})
}

func recvSnapshot(t *testing.T, ch <-chan []domain.IncomingCall) []domain.IncomingCall {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("Snapshot channel closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for snapshot")
		return nil
	}
}
