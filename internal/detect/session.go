package detect

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// Invoker executes the model on a prepared input tensor and returns the raw
// output values with their shape. Implementations are not safe for
// concurrent use; the session pool hands each caller exclusive access.
type Invoker interface {
	Invoke(input []float32) (out []float32, dims []int64, err error)
	Destroy()
}

// ortSession wraps a single ONNX Runtime session.
type ortSession struct {
	session    *ort.DynamicAdvancedSession
	cfg        ModelConfig
	inputName  string
	outputName string
}

func newORTSession(modelPath string, cfg ModelConfig, inputName, outputName string) (*ortSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("set inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ortSession{
		session:    session,
		cfg:        cfg,
		inputName:  inputName,
		outputName: outputName,
	}, nil
}

func (s *ortSession) inputShape() ort.Shape {
	if s.cfg.Layout == LayoutChannelLast {
		return ort.NewShape(1, int64(s.cfg.InputHeight), int64(s.cfg.InputWidth), 3)
	}
	return ort.NewShape(1, 3, int64(s.cfg.InputHeight), int64(s.cfg.InputWidth))
}

func (s *ortSession) Invoke(input []float32) ([]float32, []int64, error) {
	tensor, err := ort.NewTensor(s.inputShape(), input)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer tensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := s.session.Run([]ort.Value{tensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("run inference: %w", err)
	}

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		outputs[0].Destroy()
		return nil, nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer outTensor.Destroy()

	out := append([]float32(nil), outTensor.GetData()...)
	dims := append([]int64(nil), outTensor.GetShape()...)
	return out, dims, nil
}

func (s *ortSession) Destroy() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// outputGeometry interprets the output tensor shape as rows x rowLen, where
// rowLen is 5 + the class count. Accepts both batched [1, N, L] and flat
// [N, L] shapes.
func outputGeometry(dims []int64) (rows, rowLen int, err error) {
	switch len(dims) {
	case 3:
		rows, rowLen = int(dims[1]), int(dims[2])
	case 2:
		rows, rowLen = int(dims[0]), int(dims[1])
	default:
		return 0, 0, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	if rows <= 0 || rowLen < 6 {
		return 0, 0, fmt.Errorf("unexpected output shape %v", dims)
	}
	return rows, rowLen, nil
}
