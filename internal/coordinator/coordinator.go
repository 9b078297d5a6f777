// Package coordinator sequences one participant's side of a call: offer and
// answer creation, candidate queuing before the call ID exists, feed wiring
// and unconditional local teardown. The two coordinators of a call never
// share memory; they meet only in the store and the relay behind Signaling.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusCalling   Status = "calling"
	StatusConnected Status = "connected"
)

// ErrBusy means this coordinator is already driving a call; it is strictly
// one call per instance.
var ErrBusy = errors.New("coordinator already in a call")

// outboxSize bounds in-flight local candidates. Gathering produces at most
// a handful per interface, so the pump never falls this far behind.
const outboxSize = 64

type Coordinator struct {
	signal   Signaling
	peer     PeerSession
	onStatus func(Status)

	mu        sync.Mutex
	status    Status
	callID    domain.CallID
	direction domain.Direction
	answered  bool
	closed    bool

	// outbox carries locally discovered candidates to the single pump
	// goroutine; ready opens the pump once a call ID exists. Together they
	// are the queue-then-flush guarantee: nothing is dropped between
	// "negotiation starts" and "identifier assigned", and flushed
	// candidates keep their discovery order.
	outbox chan domain.Candidate
	ready  chan struct{}

	cancel   context.CancelFunc
	teardown sync.Once
}

// NewCoordinator builds a single-call coordinator. onStatus may be nil; when
// set it receives every local status transition for the presentation layer.
func NewCoordinator(signal Signaling, peer PeerSession, onStatus func(Status)) *Coordinator {
	return &Coordinator{
		signal:   signal,
		peer:     peer,
		onStatus: onStatus,
		status:   StatusIdle,
		outbox:   make(chan domain.Candidate, outboxSize),
		ready:    make(chan struct{}),
	}
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) CallID() domain.CallID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callID
}

// StartCall runs the caller path: offer first, then create the call, then
// flush the candidates that gathered while no call ID existed.
func (c *Coordinator) StartCall(ctx context.Context, receiverID domain.UserID) (domain.CallID, error) {
	c.mu.Lock()
	if c.status != StatusIdle || c.closed {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.status = StatusCalling
	c.mu.Unlock()
	c.notify(StatusCalling)

	callCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	// Candidates can start arriving the moment the local description is
	// set, so the sink and the pump are in place before CreateOffer.
	c.peer.OnCandidate(c.collectCandidate)
	go c.pumpCandidates(callCtx)

	offer, err := c.peer.CreateOffer(ctx)
	if err != nil {
		c.teardownLocal()
		return "", fmt.Errorf("creating offer: %w", err)
	}

	callID, err := c.signal.CreateCall(ctx, receiverID, offer)
	if err != nil {
		c.teardownLocal()
		return "", fmt.Errorf("creating call: %w", err)
	}

	c.mu.Lock()
	c.callID = callID
	c.direction = domain.FromCaller
	c.mu.Unlock()
	close(c.ready)

	go c.watchCall(callCtx)
	go c.applyRemoteCandidates(callCtx, domain.FromReceiver)

	return callID, nil
}

// Answer runs the receiver path. A conflict or not-found from accept means
// the call was already handled or withdrawn; the coordinator aborts and
// cleans up instead of retrying.
func (c *Coordinator) Answer(ctx context.Context, inc domain.IncomingCall) error {
	c.mu.Lock()
	if c.status != StatusIdle || c.closed {
		c.mu.Unlock()
		return ErrBusy
	}
	c.status = StatusCalling
	c.callID = inc.CallID
	c.direction = domain.FromReceiver
	c.answered = true
	c.mu.Unlock()
	c.notify(StatusCalling)

	callCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	// The call ID is already known, so the pump opens immediately and
	// candidates publish as they are discovered.
	c.peer.OnCandidate(c.collectCandidate)
	close(c.ready)
	go c.pumpCandidates(callCtx)

	answer, err := c.peer.CreateAnswer(ctx, inc.Offer)
	if err != nil {
		c.teardownLocal()
		return fmt.Errorf("creating answer: %w", err)
	}

	if err := c.signal.Accept(ctx, inc.CallID, answer); err != nil {
		c.teardownLocal()
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("call no longer available: %w", err)
		}
		return fmt.Errorf("accepting call: %w", err)
	}

	c.setStatus(StatusConnected)

	go c.watchCall(callCtx)
	go c.applyRemoteCandidates(callCtx, domain.FromCaller)

	return nil
}

// End terminates the call. The delete is best-effort notification to the
// peer; local teardown happens no matter what it returns.
func (c *Coordinator) End(ctx context.Context) {
	c.mu.Lock()
	id := c.callID
	c.mu.Unlock()

	if id != "" {
		if err := c.signal.End(ctx, id); err != nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Best-effort call delete failed")
		}
	}
	c.teardownLocal()
}

// collectCandidate is the PeerSession sink. It only parks the candidate on
// the outbox; the pump decides when publishing may begin.
func (c *Coordinator) collectCandidate(cand domain.Candidate) {
	select {
	case c.outbox <- cand:
	default:
		log.Warn().Msg("Candidate outbox full, dropping candidate")
	}
}

// pumpCandidates waits until the call ID exists, then publishes outbox
// candidates one at a time, preserving discovery order.
func (c *Coordinator) pumpCandidates(ctx context.Context) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return
	}

	c.mu.Lock()
	id, dir := c.callID, c.direction
	c.mu.Unlock()

	for {
		select {
		case cand := <-c.outbox:
			if err := c.signal.PublishCandidate(ctx, id, dir, cand); err != nil {
				log.Warn().Err(err).Str("call_id", id.String()).Msg("Publishing candidate failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// watchCall follows the call record. The first observed answer is applied
// and later notifications of it are ignored; an ended event triggers local
// teardown, since the record is already gone.
func (c *Coordinator) watchCall(ctx context.Context) {
	c.mu.Lock()
	id := c.callID
	c.mu.Unlock()

	events, err := c.signal.CallEvents(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Watching call failed")
		}
		return
	}

	for ev := range events {
		switch ev.Type {
		case port.CallAccepted:
			if ev.Answer == nil {
				continue
			}
			c.mu.Lock()
			first := !c.answered
			c.answered = true
			c.mu.Unlock()
			if !first {
				continue
			}
			if err := c.peer.AcceptAnswer(*ev.Answer); err != nil {
				log.Error().Err(err).Str("call_id", id.String()).Msg("Applying answer failed")
				continue
			}
			c.setStatus(StatusConnected)
		case port.CallEnded:
			log.Info().Str("call_id", id.String()).Msg("Peer ended the call")
			c.teardownLocal()
			return
		}
	}
}

// applyRemoteCandidates feeds the peer's candidates into the transport,
// including ones published before this subscription started.
func (c *Coordinator) applyRemoteCandidates(ctx context.Context, dir domain.Direction) {
	c.mu.Lock()
	id := c.callID
	c.mu.Unlock()

	feed, err := c.signal.CandidateFeed(ctx, id, dir)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Subscribing to candidates failed")
		}
		return
	}

	for cand := range feed {
		if err := c.peer.AddCandidate(cand); err != nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Applying candidate failed")
		}
	}
}

// teardownLocal cancels subscriptions and releases media exactly once. It
// must succeed locally regardless of the network's opinion. The coordinator
// is spent afterwards; a new call means a new instance.
func (c *Coordinator) teardownLocal() {
	c.teardown.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.peer.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing peer session failed")
		}
		c.setStatus(StatusIdle)
	})
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Coordinator) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
