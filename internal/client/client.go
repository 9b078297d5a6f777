// Package client talks to the signaling server on behalf of one
// authenticated participant. It is the only transport the negotiation
// coordinator knows about.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sorenkv/glance/internal/core/domain"
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	dialer  *websocket.Dialer
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

type createCallRequest struct {
	ReceiverID string                    `json:"receiver_id"`
	Offer      domain.SessionDescription `json:"offer"`
}

type createCallResponse struct {
	CallID string `json:"call_id"`
}

type callPayload struct {
	CallID   string                    `json:"call_id"`
	CallerID string                    `json:"caller_id"`
	Offer    domain.SessionDescription `json:"offer"`
}

type incomingCallsResponse struct {
	Calls []callPayload `json:"calls"`
}

type answerCallRequest struct {
	Answer domain.SessionDescription `json:"answer"`
}

type publishCandidateRequest struct {
	Direction string           `json:"direction"`
	Candidate domain.Candidate `json:"candidate"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError maps the server's status back onto the domain taxonomy, so
// the coordinator sees the same errors whether the store is local or remote.
func decodeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	reason := body.Error
	if reason == "" {
		reason = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("invalid request: %s", reason)
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return fmt.Errorf("signaling server: %s", reason)
	}
}

func (c *Client) CreateCall(ctx context.Context, receiverID domain.UserID, offer domain.SessionDescription) (domain.CallID, error) {
	var resp createCallResponse
	err := c.do(ctx, http.MethodPost, "/api/calls", createCallRequest{
		ReceiverID: receiverID.String(),
		Offer:      offer,
	}, &resp)
	if err != nil {
		return "", err
	}
	return domain.CallID(resp.CallID), nil
}

func (c *Client) Incoming(ctx context.Context) ([]domain.IncomingCall, error) {
	var resp incomingCallsResponse
	if err := c.do(ctx, http.MethodGet, "/api/calls/incoming", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.IncomingCall, 0, len(resp.Calls))
	for _, p := range resp.Calls {
		out = append(out, domain.IncomingCall{
			CallID:   domain.CallID(p.CallID),
			CallerID: domain.UserID(p.CallerID),
			Offer:    p.Offer,
		})
	}
	return out, nil
}

func (c *Client) Lookup(ctx context.Context, id domain.CallID) (domain.IncomingCall, error) {
	var p callPayload
	if err := c.do(ctx, http.MethodGet, "/api/signaling/"+id.String(), nil, &p); err != nil {
		return domain.IncomingCall{}, err
	}
	return domain.IncomingCall{
		CallID:   domain.CallID(p.CallID),
		CallerID: domain.UserID(p.CallerID),
		Offer:    p.Offer,
	}, nil
}

func (c *Client) Accept(ctx context.Context, id domain.CallID, answer domain.SessionDescription) error {
	return c.do(ctx, http.MethodPost, "/api/signaling/"+id.String()+"/answer", answerCallRequest{Answer: answer}, nil)
}

func (c *Client) End(ctx context.Context, id domain.CallID) error {
	return c.do(ctx, http.MethodDelete, "/api/calls/"+id.String(), nil, nil)
}

func (c *Client) PublishCandidate(ctx context.Context, id domain.CallID, dir domain.Direction, cand domain.Candidate) error {
	return c.do(ctx, http.MethodPost, "/api/signaling/"+id.String()+"/candidates", publishCandidateRequest{
		Direction: string(dir),
		Candidate: cand,
	}, nil)
}
