// Package pion adapts a pion/webrtc peer connection to the coordinator's
// PeerSession port. Media tracks come from the capture subsystem and are
// attached at construction; this package never interprets them.
package pion

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/sorenkv/glance/internal/core/domain"
)

const defaultSTUNServer = "stun:stun.l.google.com:19302"

type Config struct {
	// STUNServers to offer the transport; defaults to Google's public one.
	STUNServers []string
}

// Session wraps one webrtc.PeerConnection.
// implements coordinator.PeerSession
type Session struct {
	pc *webrtc.PeerConnection
}

// NewSession builds a peer connection and attaches the given local tracks.
func NewSession(cfg Config, tracks ...webrtc.TrackLocal) (*Session, error) {
	urls := cfg.STUNServers
	if len(urls) == 0 {
		urls = []string{defaultSTUNServer}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: urls},
		},
	})
	if err != nil {
		return nil, err
	}

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, err
		}
	}

	return &Session{pc: pc}, nil
}

// OnTrack hands remote media to the capture subsystem's consumer.
func (s *Session) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	s.pc.OnTrack(fn)
}

func (s *Session) OnCandidate(fn func(domain.Candidate)) {
	s.pc.OnICECandidate(func(ic *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if ic == nil {
			return
		}
		init := ic.ToJSON()
		c := domain.Candidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			c.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			c.SDPMLineIndex = *init.SDPMLineIndex
		}
		fn(c)
	})
}

func (s *Session) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (s *Session) AcceptAnswer(answer domain.SessionDescription) error {
	return s.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(answer.Type),
		SDP:  answer.SDP,
	})
}

func (s *Session) CreateAnswer(ctx context.Context, offer domain.SessionDescription) (domain.SessionDescription, error) {
	err := s.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(offer.Type),
		SDP:  offer.SDP,
	})
	if err != nil {
		return domain.SessionDescription{}, err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

func (s *Session) AddCandidate(c domain.Candidate) error {
	init := webrtc.ICECandidateInit{Candidate: c.Candidate}
	if c.SDPMid != "" {
		mid := c.SDPMid
		init.SDPMid = &mid
	}
	init.SDPMLineIndex = &c.SDPMLineIndex

	return s.pc.AddICECandidate(init)
}

func (s *Session) Close() error {
	return s.pc.Close()
}
