// Package stream runs the per-connection frame loop: pull a frame from the
// media collaborator, drive the detection pipeline, deliver the result over
// the side channel.
package stream

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/detect"
)

// FrameSource yields successive decoded frames from a media track. Next
// blocks until a frame is available and returns an error when the track
// ends or the transport fails; that error terminates the connection loop.
type FrameSource interface {
	Next(ctx context.Context) (detect.Frame, error)
}

// SideChannel is the out-of-band result path. Send delivers one text
// message; Open reports whether the channel is currently writable.
type SideChannel interface {
	Send(payload []byte) error
	Open() bool
}

// Detector processes one frame and always produces a result, degraded or
// mock included.
type Detector interface {
	ProcessFrame(ctx context.Context, frame detect.Frame, frameID string, captureTS int64) *detect.Result
}

// State is the connection loop lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Orchestrator owns one connection's frame-consumption state machine. The
// side channel is registered explicitly; until then, and whenever the
// channel is not open, results are dropped on the floor. There is no
// buffering and no backpressure: frames are processed strictly in arrival
// order, and a slow model grows end-to-end latency instead of shedding
// frames.
type Orchestrator struct {
	log *zap.Logger
	det Detector

	mu      sync.Mutex
	state   State
	channel SideChannel
	onClose func()
}

func NewOrchestrator(log *zap.Logger, det Detector) *Orchestrator {
	return &Orchestrator{log: log, det: det, state: StateIdle}
}

// RegisterChannel attaches the side channel for result delivery. May be
// called before or after streaming starts; a nil channel detaches.
func (o *Orchestrator) RegisterChannel(ch SideChannel) {
	o.mu.Lock()
	o.channel = ch
	o.mu.Unlock()
}

// OnClose registers a hook invoked once when the loop transitions to
// Closed, used to release transport resources.
func (o *Orchestrator) OnClose(fn func()) {
	o.mu.Lock()
	o.onClose = fn
	o.mu.Unlock()
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run consumes src until it fails or ctx is canceled, then transitions to
// Closed and releases the side channel. It returns the frame-source error
// that ended the loop. A single frame's pipeline failure does not end the
// loop; the detector converts it to an empty result.
func (o *Orchestrator) Run(ctx context.Context, src FrameSource) error {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is %s, cannot start streaming", state)
	}
	o.state = StateStreaming
	o.mu.Unlock()

	o.log.Info("streaming started")
	defer o.close()

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			o.log.Info("frame source ended", zap.Error(err))
			return err
		}

		captureTS := time.Now().UnixMilli()
		frameID := newFrameID(captureTS)

		result := o.det.ProcessFrame(ctx, frame, frameID, captureTS)
		o.deliver(result)
	}
}

// deliver sends the result when a channel is registered and open; anything
// else drops the message silently.
func (o *Orchestrator) deliver(result *detect.Result) {
	o.mu.Lock()
	ch := o.channel
	o.mu.Unlock()

	if ch == nil || !ch.Open() {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		o.log.Error("encode result", zap.String("frame_id", result.FrameID), zap.Error(err))
		return
	}
	if err := ch.Send(payload); err != nil {
		o.log.Warn("send result", zap.String("frame_id", result.FrameID), zap.Error(err))
	}
}

func (o *Orchestrator) close() {
	o.mu.Lock()
	if o.state == StateClosed {
		o.mu.Unlock()
		return
	}
	o.state = StateClosed
	o.channel = nil
	fn := o.onClose
	o.onClose = nil
	o.mu.Unlock()

	o.log.Info("streaming closed")
	if fn != nil {
		fn()
	}
}

// newFrameID builds a per-frame identifier from the receipt timestamp and a
// short random suffix.
func newFrameID(ts int64) string {
	u := uuid.New()
	return fmt.Sprintf("frame_%d_%s", ts, hex.EncodeToString(u[:4]))
}
