package detect

import (
	"context"
	"errors"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/metrics"
)

var (
	errNoModelIO     = errors.New("model declares no inputs or outputs")
	errServiceClosed = errors.New("service closed")
)

// Options configures a Service.
type Options struct {
	ModelPath     string
	LibraryPath   string
	ConfThreshold float32
	NMSThreshold  float32
	PoolSize      int
}

// modelState is the model availability variant, produced exactly once by
// Initialize and checked on every frame. Either the pool is usable with its
// resolved config, or Reason says why inference is off.
type modelState struct {
	loaded bool
	reason string
	cfg    ModelConfig
}

// Service is the detection pipeline facade shared by all connections. It
// owns the session pool, the decoder and the process-wide performance
// tracker.
type Service struct {
	log  *zap.Logger
	opts Options
	rec  *metrics.Recorder

	mu          sync.Mutex
	initialized bool
	state       modelState

	pool *sessionPool
	pre  *Preprocessor
	dec  *Decoder
	perf *PerformanceTracker
}

func NewService(log *zap.Logger, rec *metrics.Recorder, opts Options) *Service {
	if opts.ConfThreshold <= 0 {
		opts.ConfThreshold = DefaultConfThreshold
	}
	if opts.NMSThreshold <= 0 {
		opts.NMSThreshold = DefaultNMSThreshold
	}
	return &Service{
		log:  log,
		opts: opts,
		rec:  rec,
		perf: NewPerformanceTracker(),
	}
}

// Initialize loads and validates the model. It is idempotent and never
// fails: any problem along the way, missing runtime library included, is
// logged and the service degrades to mock inference. Deployments without an
// accelerator still come up and serve synthetic results.
func (s *Service) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	if err := s.loadModel(); err != nil {
		s.log.Warn("model unavailable, falling back to mock inference", zap.Error(err))
		s.state = modelState{loaded: false, reason: err.Error()}
		return
	}
	s.log.Info("model loaded",
		zap.String("path", s.opts.ModelPath),
		zap.String("layout", s.state.cfg.Layout.String()),
		zap.Int("input_width", s.state.cfg.InputWidth),
		zap.Int("input_height", s.state.cfg.InputHeight),
		zap.Int("pool_size", s.opts.PoolSize),
	)
}

func (s *Service) loadModel() error {
	libPath, err := locateSharedLibrary(s.opts.LibraryPath)
	if err != nil {
		return err
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return err
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(s.opts.ModelPath)
	if err != nil {
		return err
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return errNoModelIO
	}

	layout, width, height := ResolveLayout(inputs[0].Dimensions)
	cfg := ModelConfig{
		InputWidth:    width,
		InputHeight:   height,
		Layout:        layout,
		ConfThreshold: s.opts.ConfThreshold,
		NMSThreshold:  s.opts.NMSThreshold,
	}

	inputName, outputName := inputs[0].Name, outputs[0].Name
	pool, err := newSessionPool(func() (Invoker, error) {
		return newORTSession(s.opts.ModelPath, cfg, inputName, outputName)
	}, s.opts.PoolSize)
	if err != nil {
		return err
	}

	s.pool = pool
	s.pre = NewPreprocessor(cfg)
	s.dec = NewDecoder(cfg, cocoLabels)
	s.state = modelState{loaded: true, cfg: cfg}
	return nil
}

// Available reports whether real inference is loaded; false means every
// frame gets the mock result.
func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.loaded
}

func (s *Service) modelConfig() ModelConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cfg
}

// UnavailableReason is empty when the model is loaded.
func (s *Service) UnavailableReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.reason
}

// PerformanceStats snapshots the rolling latency window.
func (s *Service) PerformanceStats() PerformanceStats {
	return s.perf.Stats()
}

// PoolStats snapshots session pool usage. Zero when no pool is loaded.
func (s *Service) PoolStats() PoolStats {
	s.mu.Lock()
	pool := s.pool
	s.mu.Unlock()
	if pool == nil {
		return PoolStats{}
	}
	return pool.stats()
}

// Close releases the session pool.
func (s *Service) Close() {
	s.mu.Lock()
	pool := s.pool
	s.pool = nil
	s.state = modelState{loaded: false, reason: "service closed"}
	s.mu.Unlock()
	if pool != nil {
		pool.destroy()
	}
}

// ProcessFrame runs the full pipeline for one frame and always returns a
// result: the real detections, the fixed mock result when the model is
// unavailable, or an empty-detections result when a stage fails. Per-frame
// failures never propagate to the caller and are never retried.
func (s *Service) ProcessFrame(ctx context.Context, frame Frame, frameID string, captureTS int64) *Result {
	recvTS := time.Now().UnixMilli()

	if !s.Available() {
		return s.mockResult(frameID, captureTS, recvTS)
	}

	detections, inferenceTS, err := s.runPipeline(ctx, frame)
	if err != nil {
		s.log.Error("frame processing failed",
			zap.String("frame_id", frameID),
			zap.Error(err),
		)
		s.rec.FrameFailed()
		return &Result{
			FrameID:     frameID,
			CaptureTS:   captureTS,
			RecvTS:      recvTS,
			InferenceTS: time.Now().UnixMilli(),
			Detections:  []Detection{},
		}
	}

	return &Result{
		FrameID:     frameID,
		CaptureTS:   captureTS,
		RecvTS:      recvTS,
		InferenceTS: inferenceTS,
		Detections:  detections,
	}
}

func (s *Service) runPipeline(ctx context.Context, frame Frame) ([]Detection, int64, error) {
	prepStart := time.Now()
	tensor, params, err := s.pre.Run(frame)
	if err != nil {
		return nil, 0, err
	}
	prepDone := time.Now()

	// Snapshot under the mutex: Close nils the pool concurrently, and a
	// frame in flight during shutdown must degrade, not panic.
	s.mu.Lock()
	pool := s.pool
	s.mu.Unlock()
	if pool == nil {
		return nil, 0, errServiceClosed
	}

	session, err := pool.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer pool.release(session)

	inferStart := time.Now()
	out, dims, err := session.Invoke(tensor)
	if err != nil {
		return nil, 0, err
	}
	inferenceTS := time.Now().UnixMilli()

	rows, rowLen, err := outputGeometry(dims)
	if err != nil {
		return nil, 0, err
	}

	candidates := s.dec.Decode(out, rows, rowLen, &params, frame.Width, frame.Height)
	kept := NonMaxSuppression(candidates, s.modelConfig().NMSThreshold)

	latency := time.Since(inferStart).Seconds()
	s.perf.Record(latency)
	s.rec.ObserveInference(latency)

	if ce := s.log.Check(zap.DebugLevel, "frame timings"); ce != nil {
		ce.Write(
			zap.Duration("preprocess", prepDone.Sub(prepStart)),
			zap.Duration("inference_and_decode", time.Since(inferStart)),
			zap.Int("candidates", len(candidates)),
			zap.Int("kept", len(kept)),
		)
	}

	return candidatesToDetections(kept), inferenceTS, nil
}

// mockResult is the fixed synthetic payload served while inference is
// unavailable. It carries a send timestamp and a canned performance
// snapshot so downstream consumers exercise the full message schema.
func (s *Service) mockResult(frameID string, captureTS, recvTS int64) *Result {
	now := time.Now().UnixMilli()
	return &Result{
		FrameID:     frameID,
		CaptureTS:   captureTS,
		RecvTS:      recvTS,
		InferenceTS: now,
		SendTS:      now,
		Detections: []Detection{
			{Label: "person", Score: 0.95, XMin: 0.25, YMin: 0.25, XMax: 0.5, YMax: 0.5},
		},
		Performance: &PerformanceStats{
			AvgProcessingTimeMs: 5.0,
			FPS:                 20.0,
			FramesProcessed:     s.perf.FramesProcessed() + 1,
		},
	}
}
