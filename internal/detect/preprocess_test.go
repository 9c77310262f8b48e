package detect

import (
	"math"
	"testing"
)

// solidFrame builds a packed BGR frame filled with one color.
func solidFrame(w, h int, b, g, r byte) Frame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = b, g, r
	}
	return Frame{Data: data, Width: w, Height: h}
}

func TestPreprocessRejectsBadFrames(t *testing.T) {
	p := NewPreprocessor(ModelConfig{InputWidth: 4, InputHeight: 4, Layout: LayoutChannelFirst})

	cases := []struct {
		name  string
		frame Frame
	}{
		{"zero dimensions", Frame{Data: []byte{1, 2, 3}, Width: 0, Height: 0}},
		{"short buffer", Frame{Data: make([]byte, 10), Width: 4, Height: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := p.Run(tc.frame); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStretchChannelFirstLayout(t *testing.T) {
	p := NewPreprocessor(ModelConfig{InputWidth: 4, InputHeight: 4, Layout: LayoutChannelFirst})

	// Pure blue in BGR order must land in the B plane after the RGB swap.
	tensor, params, err := p.Run(solidFrame(8, 8, 255, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(tensor) != 4*4*3 {
		t.Fatalf("tensor length %d, expected %d", len(tensor), 4*4*3)
	}

	channelSize := 4 * 4
	if tensor[0] != 0 {
		t.Errorf("R plane = %f, expected 0", tensor[0])
	}
	if tensor[channelSize] != 0 {
		t.Errorf("G plane = %f, expected 0", tensor[channelSize])
	}
	if tensor[2*channelSize] != 1 {
		t.Errorf("B plane = %f, expected 1", tensor[2*channelSize])
	}

	if params.PadX != 0 || params.PadY != 0 {
		t.Errorf("stretch params must have zero padding, got %+v", params)
	}
}

func TestStretchParamsApproximation(t *testing.T) {
	p := NewPreprocessor(ModelConfig{InputWidth: 640, InputHeight: 640, Layout: LayoutChannelFirst})

	_, params, err := p.Run(solidFrame(64, 48, 10, 20, 30))
	if err != nil {
		t.Fatal(err)
	}
	// The stretch policy records the letterbox-style min ratio even though
	// the resize ignored aspect ratio.
	want := float32(640.0 / 64.0)
	if math.Abs(float64(params.Scale-want)) > 1e-6 {
		t.Errorf("scale = %f, expected %f", params.Scale, want)
	}
}

func TestLetterboxGeometry(t *testing.T) {
	cfg := ModelConfig{InputWidth: 416, InputHeight: 416, Layout: LayoutChannelLast}
	p := NewPreprocessor(cfg)

	srcW, srcH := 64, 48
	tensor, params, err := p.Run(solidFrame(srcW, srcH, 255, 255, 255))
	if err != nil {
		t.Fatal(err)
	}
	if len(tensor) != 416*416*3 {
		t.Fatalf("tensor length %d, expected %d", len(tensor), 416*416*3)
	}

	// Source wider than tall: scale < target/srcH, bars above and below.
	wantScale := 416.0 / 64.0
	if math.Abs(float64(params.Scale)-wantScale) > 1e-6 {
		t.Errorf("scale = %f, expected %f", params.Scale, wantScale)
	}

	scaledH := int(params.Scale * float32(srcH))
	// Padding is symmetric within a pixel.
	if top, total := int(params.PadY), 416-scaledH; top < total/2 || top > total/2+1 {
		t.Errorf("padY = %d, expected symmetric share of %d", top, total)
	}
	// Scaled region preserves the source aspect ratio.
	scaledW := int(params.Scale * float32(srcW))
	srcAspect := float64(srcW) / float64(srcH)
	gotAspect := float64(scaledW) / float64(scaledH)
	if math.Abs(srcAspect-gotAspect) > 0.05 {
		t.Errorf("aspect ratio %f, expected %f", gotAspect, srcAspect)
	}
}

func TestLetterboxScaleBelowOneForLargeFrames(t *testing.T) {
	p := NewPreprocessor(ModelConfig{InputWidth: 416, InputHeight: 416, Layout: LayoutChannelLast})

	_, params, err := p.Run(solidFrame(640, 480, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if params.Scale >= 1 {
		t.Errorf("scale = %f, expected < 1 for a frame larger than target", params.Scale)
	}
}

func TestLetterboxPadsWithGray(t *testing.T) {
	p := NewPreprocessor(ModelConfig{InputWidth: 416, InputHeight: 416, Layout: LayoutChannelLast})

	tensor, params, err := p.Run(solidFrame(64, 48, 255, 255, 255))
	if err != nil {
		t.Fatal(err)
	}
	if params.PadY <= 0 {
		t.Fatal("fixture should produce vertical padding")
	}

	gray := float64(letterboxFill) / 255.0
	// Top-left corner sits in the padding band.
	for c := 0; c < 3; c++ {
		if math.Abs(float64(tensor[c])-gray) > 0.01 {
			t.Errorf("padding channel %d = %f, expected %f", c, tensor[c], gray)
		}
	}

	// Center of the canvas is inside the pasted white image.
	center := ((208*416)+208)*3
	for c := 0; c < 3; c++ {
		if math.Abs(float64(tensor[center+c])-1.0) > 0.01 {
			t.Errorf("content channel %d = %f, expected 1.0", c, tensor[center+c])
		}
	}
}
