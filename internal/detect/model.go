package detect

// Layout is the tensor axis ordering expected by the model input.
type Layout int

const (
	// LayoutChannelFirst is NCHW: channels before the spatial dimensions.
	LayoutChannelFirst Layout = iota
	// LayoutChannelLast is NHWC: channels after the spatial dimensions.
	LayoutChannelLast
)

func (l Layout) String() string {
	switch l {
	case LayoutChannelFirst:
		return "channel_first"
	case LayoutChannelLast:
		return "channel_last"
	default:
		return "unknown"
	}
}

const (
	// DefaultInputSize is the square input used when the model's declared
	// shape cannot be interpreted.
	DefaultInputSize = 640

	// DefaultConfThreshold drops candidates below this combined confidence.
	DefaultConfThreshold = 0.5

	// DefaultNMSThreshold is the IoU above which overlapping boxes are
	// suppressed.
	DefaultNMSThreshold = 0.4

	// legacyLetterboxSize is the input size of the older channel-last model
	// generation, the only configuration that used letterbox preprocessing.
	legacyLetterboxSize = 416
)

// ModelConfig describes the loaded model's input contract and the
// postprocessing thresholds. It is built once at load time and treated as
// immutable afterwards.
type ModelConfig struct {
	InputWidth    int
	InputHeight   int
	Layout        Layout
	ConfThreshold float32
	NMSThreshold  float32
}

// usesLetterbox reports whether preprocessing should letterbox rather than
// stretch for this configuration.
func (c ModelConfig) usesLetterbox() bool {
	return c.Layout == LayoutChannelLast &&
		c.InputWidth == legacyLetterboxSize &&
		c.InputHeight == legacyLetterboxSize
}

// ResolveLayout interprets a model's declared rank-4 input shape. A dimension
// of 3 in position 1 means NCHW, in position 3 means NHWC. Anything else,
// including dynamic dimensions, falls back to the 640x640 channel-first
// default; resolution failure never prevents startup.
func ResolveLayout(dims []int64) (Layout, int, int) {
	if len(dims) != 4 {
		return LayoutChannelFirst, DefaultInputSize, DefaultInputSize
	}
	if dims[1] == 3 && dims[2] > 0 && dims[3] > 0 {
		return LayoutChannelFirst, int(dims[3]), int(dims[2])
	}
	if dims[3] == 3 && dims[1] > 0 && dims[2] > 0 {
		return LayoutChannelLast, int(dims[2]), int(dims[1])
	}
	return LayoutChannelFirst, DefaultInputSize, DefaultInputSize
}
