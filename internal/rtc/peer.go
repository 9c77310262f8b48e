// Package rtc adapts a pion peer connection to the streaming pipeline's
// collaborator interfaces: the negotiated data channel becomes the side
// channel, incoming video tracks become frame sources.
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/metrics"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/stream"
)

// SourceFactory builds a FrameSource for an incoming video track. Codec
// depacketization and decoding are the media collaborator's concern, so the
// factory is injected by the embedding application.
type SourceFactory func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) (stream.FrameSource, error)

// Peer wires one client's peer connection to its own orchestrator loop.
type Peer struct {
	id   string
	log  *zap.Logger
	pc   *webrtc.PeerConnection
	orch *stream.Orchestrator
	rec  *metrics.Recorder

	newSource SourceFactory

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewPeer creates the underlying peer connection and registers track and
// data channel handlers. onCandidate forwards trickle ICE candidates back
// to the signaling transport.
func NewPeer(
	id string,
	log *zap.Logger,
	det stream.Detector,
	newSource SourceFactory,
	rec *metrics.Recorder,
	onCandidate func(webrtc.ICECandidateInit),
) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		id:        id,
		log:       log.With(zap.String("connection_id", id)),
		pc:        pc,
		orch:      stream.NewOrchestrator(log.With(zap.String("connection_id", id)), det),
		rec:       rec,
		newSource: newSource,
		ctx:       ctx,
		cancel:    cancel,
	}
	p.orch.OnClose(p.Close)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		p.log.Info("data channel created", zap.String("label", dc.Label()))
		p.orch.RegisterChannel(&dataChannel{dc: dc})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		p.log.Info("track received",
			zap.String("kind", track.Kind().String()),
			zap.String("codec", track.Codec().MimeType),
		)
		if track.Kind() != webrtc.RTPCodecTypeVideo {
			return
		}
		if p.newSource == nil {
			p.log.Warn("no frame source factory configured, ignoring video track")
			return
		}
		src, err := p.newSource(track, receiver)
		if err != nil {
			p.log.Error("build frame source", zap.Error(err))
			return
		}
		go func() {
			_ = p.orch.Run(p.ctx, src)
		}()
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || onCandidate == nil {
			return
		}
		onCandidate(c.ToJSON())
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Info("peer connection state changed", zap.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			p.Close()
		}
	})

	rec.ConnectionOpened()
	return p, nil
}

// HandleOffer applies a remote offer and produces the local answer SDP.
func (p *Peer) HandleOffer(sdp string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return answer.SDP, nil
}

// AddCandidate applies a remote ICE candidate.
func (p *Peer) AddCandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

// Close tears the connection down: the orchestrator context is canceled,
// the transport released. Safe to call multiple times.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if err := p.pc.Close(); err != nil {
			p.log.Warn("close peer connection", zap.Error(err))
		}
		p.rec.ConnectionClosed()
		p.log.Info("connection closed")
	})
}

// dataChannel adapts a pion data channel to the SideChannel interface.
type dataChannel struct {
	dc *webrtc.DataChannel
}

func (d *dataChannel) Send(payload []byte) error {
	return d.dc.SendText(string(payload))
}

func (d *dataChannel) Open() bool {
	return d.dc.ReadyState() == webrtc.DataChannelStateOpen
}
