package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

var (
	offer  = domain.SessionDescription{Type: "offer", SDP: "v=0 caller"}
	answer = domain.SessionDescription{Type: "answer", SDP: "v=0 receiver"}
)

func TestCreateGetRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, err := store.Create(ctx, "alice", "bob", offer)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if call.ID == "" {
		t.Fatal("Expected a call ID")
	}

	got, err := store.Get(ctx, call.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Expected status pending, got %q", got.Status)
	}
	if got.Answer != nil {
		t.Errorf("Expected nil answer, got %+v", got.Answer)
	}
	if got.Offer != offer {
		t.Errorf("Offer changed in round trip: %+v", got.Offer)
	}
	if got.CallerID != "alice" || got.ReceiverID != "bob" {
		t.Errorf("Participants changed: %s -> %s", got.CallerID, got.ReceiverID)
	}
}

func TestCreateNeverDedups(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	a, _ := store.Create(ctx, "alice", "bob", offer)
	b, _ := store.Create(ctx, "alice", "bob", offer)
	if a.ID == b.ID {
		t.Errorf("Identical offers must still get distinct IDs, both got %s", a.ID)
	}
}

func TestFindPendingFiltersAndOrders(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first, _ := store.Create(ctx, "alice", "bob", offer)
	second, _ := store.Create(ctx, "carol", "bob", offer)
	other, _ := store.Create(ctx, "alice", "dave", offer)

	// accepted calls must drop out of discovery
	accepted, _ := store.Create(ctx, "erin", "bob", offer)
	if err := store.Accept(ctx, accepted.ID, "bob", answer); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	calls, err := store.FindPending(ctx, "bob")
	if err != nil {
		t.Fatalf("FindPending failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("Expected 2 pending calls for bob, got %d", len(calls))
	}
	if calls[0].ID != second.ID || calls[1].ID != first.ID {
		t.Errorf("Expected newest first [%s %s], got [%s %s]", second.ID, first.ID, calls[0].ID, calls[1].ID)
	}
	for _, c := range calls {
		if c.ID == other.ID {
			t.Errorf("Call addressed to dave leaked into bob's discovery")
		}
		if c.Status != domain.StatusPending || c.ReceiverID != "bob" {
			t.Errorf("FindPending returned %q call for %s", c.Status, c.ReceiverID)
		}
	}
}

func TestAcceptWritesAnswerOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, _ := store.Create(ctx, "alice", "bob", offer)
	if err := store.Accept(ctx, call.ID, "bob", answer); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	got, _ := store.Get(ctx, call.ID)
	if got.Status != domain.StatusAccepted {
		t.Errorf("Expected status accepted, got %q", got.Status)
	}
	if got.Answer == nil || *got.Answer != answer {
		t.Errorf("Expected answer %+v, got %+v", answer, got.Answer)
	}
	if got.AnsweredAt.IsZero() {
		t.Error("Expected answeredAt to be set")
	}

	// second accept must conflict, not overwrite
	late := domain.SessionDescription{Type: "answer", SDP: "v=0 late"}
	if err := store.Accept(ctx, call.ID, "bob", late); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected ErrConflict on double accept, got %v", err)
	}
	got, _ = store.Get(ctx, call.ID)
	if *got.Answer != answer {
		t.Errorf("Second accept overwrote the answer: %+v", got.Answer)
	}
}

func TestAcceptOnlyByReceiver(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, _ := store.Create(ctx, "alice", "bob", offer)

	for _, id := range []domain.UserID{"alice", "carol"} {
		if err := store.Accept(ctx, call.ID, id, answer); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("Accept by %s: expected ErrForbidden, got %v", id, err)
		}
	}

	got, _ := store.Get(ctx, call.ID)
	if got.Status != domain.StatusPending || got.Answer != nil {
		t.Errorf("Forbidden accept mutated the call: %+v", got)
	}
}

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, _ := store.Create(ctx, "alice", "bob", offer)

	const attempts = 16
	answers := make([]domain.SessionDescription, attempts)
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		answers[i] = domain.SessionDescription{Type: "answer", SDP: string(rune('a' + i))}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = store.Accept(ctx, call.ID, "bob", answers[i])
		}()
	}
	wg.Wait()

	winners := 0
	winner := -1
	for i, err := range results {
		switch {
		case err == nil:
			winners++
			winner = i
		case !errors.Is(err, domain.ErrConflict):
			t.Errorf("Attempt %d: expected ErrConflict, got %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one successful accept, got %d", winners)
	}

	got, _ := store.Get(ctx, call.ID)
	if got.Answer == nil || *got.Answer != answers[winner] {
		t.Errorf("Stored answer is not the winner's: %+v", got.Answer)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, _ := store.Create(ctx, "alice", "bob", offer)

	if err := store.Delete(ctx, call.ID, "bob"); err != nil {
		t.Fatalf("First delete failed: %v", err)
	}
	if err := store.Delete(ctx, call.ID, "alice"); err != nil {
		t.Fatalf("Repeat delete must be a no-op success, got %v", err)
	}
	if _, err := store.Get(ctx, call.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteByEitherParticipantOnly(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	call, _ := store.Create(ctx, "alice", "bob", offer)

	if err := store.Delete(ctx, call.ID, "carol"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Stranger delete: expected ErrForbidden, got %v", err)
	}
	if _, err := store.Get(ctx, call.ID); err != nil {
		t.Errorf("Forbidden delete removed the call: %v", err)
	}

	// the caller may tear down their own invitation
	if err := store.Delete(ctx, call.ID, "alice"); err != nil {
		t.Errorf("Caller delete failed: %v", err)
	}
}

func TestWatchSeesAcceptAndEnd(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	call, _ := store.Create(ctx, "alice", "bob", offer)

	events, err := store.Watch(ctx, call.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := store.Accept(ctx, call.ID, "bob", answer); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	ev := recvEvent(t, events)
	if ev.Type != port.CallAccepted || ev.Answer == nil || *ev.Answer != answer {
		t.Fatalf("Expected accepted event with answer, got %+v", ev)
	}

	if err := store.Delete(ctx, call.ID, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ev = recvEvent(t, events)
	if ev.Type != port.CallEnded {
		t.Fatalf("Expected ended event, got %+v", ev)
	}

	if _, ok := <-events; ok {
		t.Error("Expected watch channel to close after the call ended")
	}
}

func TestWatchReplaysExistingAnswer(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	call, _ := store.Create(ctx, "alice", "bob", offer)
	if err := store.Accept(ctx, call.ID, "bob", answer); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// watcher attaching late must still observe the answer
	events, err := store.Watch(ctx, call.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	ev := recvEvent(t, events)
	if ev.Type != port.CallAccepted || ev.Answer == nil || *ev.Answer != answer {
		t.Fatalf("Expected replayed accepted event, got %+v", ev)
	}
}

func TestWatchUnknownCall(t *testing.T) {
	store := NewStore()
	if _, err := store.Watch(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func recvEvent(t *testing.T, ch <-chan port.CallEvent) port.CallEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("Event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for call event")
		return port.CallEvent{}
	}
}
