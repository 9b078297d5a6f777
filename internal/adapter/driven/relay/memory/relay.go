package memory

import (
	"context"
	"sync"

	"github.com/sorenkv/glance/internal/core/domain"
)

type feedKey struct {
	call domain.CallID
	dir  domain.Direction
}

// feed is one direction's append-only candidate log. Subscribers track
// their own cursor into the log, which is what makes replay-then-live
// delivery gapless: the cursor does not care whether a candidate arrived
// before or after the subscription started.
type feed struct {
	mu     sync.Mutex
	cond   *sync.Cond
	log    []domain.Candidate
	closed bool
}

func newFeed() *feed {
	f := &feed{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Relay is the in-memory candidate exchange.
// implements port.CandidateRelay
type Relay struct {
	mu    sync.Mutex
	feeds map[feedKey]*feed
}

func NewRelay() *Relay {
	return &Relay{
		feeds: make(map[feedKey]*feed),
	}
}

// get returns the feed for a call+direction, creating it on first touch so
// publish and subscribe work in either order.
func (r *Relay) get(id domain.CallID, dir domain.Direction) *feed {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := feedKey{call: id, dir: dir}
	f, ok := r.feeds[k]
	if !ok {
		f = newFeed()
		r.feeds[k] = f
	}
	return f
}

func (r *Relay) Publish(ctx context.Context, id domain.CallID, dir domain.Direction, c domain.Candidate) error {
	f := r.get(id, dir)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return domain.ErrNotFound
	}
	f.log = append(f.log, c)
	f.cond.Broadcast()
	return nil
}

func (r *Relay) Subscribe(ctx context.Context, id domain.CallID, dir domain.Direction) (<-chan domain.Candidate, error) {
	f := r.get(id, dir)
	ch := make(chan domain.Candidate)

	// cond.Wait cannot watch ctx, so cancellation just wakes every waiter
	// and lets them re-check.
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	}()

	go func() {
		defer close(ch)
		next := 0
		for {
			f.mu.Lock()
			for next >= len(f.log) && !f.closed && ctx.Err() == nil {
				f.cond.Wait()
			}
			if ctx.Err() != nil || (f.closed && next >= len(f.log)) {
				f.mu.Unlock()
				return
			}
			batch := make([]domain.Candidate, len(f.log)-next)
			copy(batch, f.log[next:])
			next = len(f.log)
			f.mu.Unlock()

			for _, c := range batch {
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (r *Relay) Drop(id domain.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dir := range []domain.Direction{domain.FromCaller, domain.FromReceiver} {
		k := feedKey{call: id, dir: dir}
		f, ok := r.feeds[k]
		if !ok {
			continue
		}
		f.mu.Lock()
		f.closed = true
		f.cond.Broadcast()
		f.mu.Unlock()
		delete(r.feeds, k)
	}
}
