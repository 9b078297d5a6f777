package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

type callEventPayload struct {
	Type   string                     `json:"type"`
	Answer *domain.SessionDescription `json:"answer,omitempty"`
}

// wsURL rewrites the REST base URL onto the websocket scheme.
func (c *Client) wsURL(path string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

func (c *Client) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(path), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, err
	}
	return conn, nil
}

// CandidateFeed subscribes to one direction's candidates: full replay of the
// history first, then live publishes, in order. The channel closes when ctx
// is cancelled or the call ends.
func (c *Client) CandidateFeed(ctx context.Context, id domain.CallID, dir domain.Direction) (<-chan domain.Candidate, error) {
	conn, err := c.dial(ctx, "/api/signaling/"+id.String()+"/candidates?direction="+string(dir))
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Candidate)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var cand domain.Candidate
			if err := conn.ReadJSON(&cand); err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("call_id", id.String()).Msg("Candidate feed dropped")
				}
				return
			}
			select {
			case out <- cand:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CallEvents watches the call record; the caller uses it to observe the
// answer, both sides use it to observe teardown.
func (c *Client) CallEvents(ctx context.Context, id domain.CallID) (<-chan port.CallEvent, error) {
	conn, err := c.dial(ctx, "/api/calls/"+id.String()+"/events")
	if err != nil {
		return nil, err
	}

	out := make(chan port.CallEvent)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var ev callEventPayload
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("call_id", id.String()).Msg("Call events feed dropped")
				}
				return
			}
			select {
			case out <- port.CallEvent{Type: port.CallEventType(ev.Type), Answer: ev.Answer}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
