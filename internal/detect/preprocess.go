package detect

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Frame is a raw decoded video frame in packed BGR byte order, the format
// the media collaborator hands over.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// TransformParams records how a frame was mapped into model space so the
// decoder can invert it. Valid only for the frame that produced it.
type TransformParams struct {
	Scale float32
	PadX  float32
	PadY  float32
}

const letterboxFill = 128

// Preprocessor converts frames into batched float32 model input tensors.
type Preprocessor struct {
	cfg ModelConfig
}

func NewPreprocessor(cfg ModelConfig) *Preprocessor {
	return &Preprocessor{cfg: cfg}
}

// Run produces the input tensor for a frame together with the inverse
// transform parameters. The tensor holds 1*3*H*W values laid out per the
// configured layout.
func (p *Preprocessor) Run(f Frame) ([]float32, TransformParams, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, TransformParams{}, fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Data) < f.Width*f.Height*3 {
		return nil, TransformParams{}, fmt.Errorf("frame buffer too short: %d bytes for %dx%d", len(f.Data), f.Width, f.Height)
	}

	img := bgrToImage(f)
	if p.cfg.usesLetterbox() {
		return p.letterbox(img, f.Width, f.Height)
	}
	return p.stretch(img, f.Width, f.Height)
}

// letterbox resizes preserving aspect ratio and centers the result on a
// mid-gray canvas, recording the exact scale and symmetric padding.
func (p *Preprocessor) letterbox(img *image.NRGBA, srcW, srcH int) ([]float32, TransformParams, error) {
	tw, th := p.cfg.InputWidth, p.cfg.InputHeight
	scale := minf(float64(tw)/float64(srcW), float64(th)/float64(srcH))
	scaledW := int(scale * float64(srcW))
	scaledH := int(scale * float64(srcH))
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	resized := imaging.Resize(img, scaledW, scaledH, imaging.Lanczos)
	canvas := imaging.New(tw, th, color.NRGBA{letterboxFill, letterboxFill, letterboxFill, 255})
	padX := (tw - scaledW) / 2
	padY := (th - scaledH) / 2
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	tensor := make([]float32, tw*th*3)
	fillChannelLast(tensor, canvas, tw, th)

	params := TransformParams{
		Scale: float32(scale),
		PadX:  float32(padX),
		PadY:  float32(padY),
	}
	return tensor, params, nil
}

// stretch resizes directly to the target size, ignoring aspect ratio. The
// recorded params mirror the letterbox formula with zero padding; for
// non-square frames this is a known approximation, kept rather than
// corrected so both pipeline generations invert coordinates the same way.
func (p *Preprocessor) stretch(img *image.NRGBA, srcW, srcH int) ([]float32, TransformParams, error) {
	tw, th := p.cfg.InputWidth, p.cfg.InputHeight
	resized := imaging.Resize(img, tw, th, imaging.Lanczos)

	tensor := make([]float32, tw*th*3)
	if p.cfg.Layout == LayoutChannelFirst {
		fillChannelFirst(tensor, resized, tw, th)
	} else {
		fillChannelLast(tensor, resized, tw, th)
	}

	params := TransformParams{
		Scale: float32(minf(float64(tw)/float64(srcW), float64(th)/float64(srcH))),
		PadX:  0,
		PadY:  0,
	}
	return tensor, params, nil
}

// bgrToImage converts a packed BGR buffer to NRGBA, swapping to RGB order.
func bgrToImage(f Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := y * f.Width * 3
		dst := y * img.Stride
		for x := 0; x < f.Width; x++ {
			img.Pix[dst+0] = f.Data[src+2]
			img.Pix[dst+1] = f.Data[src+1]
			img.Pix[dst+2] = f.Data[src+0]
			img.Pix[dst+3] = 255
			src += 3
			dst += 4
		}
	}
	return img
}

// fillChannelFirst writes CHW planes normalized to [0,1].
func fillChannelFirst(tensor []float32, img *image.NRGBA, w, h int) {
	channelSize := w * h
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			i := y*w + x
			px := row + x*4
			tensor[i] = float32(img.Pix[px+0]) / 255.0
			tensor[channelSize+i] = float32(img.Pix[px+1]) / 255.0
			tensor[channelSize*2+i] = float32(img.Pix[px+2]) / 255.0
		}
	}
}

// fillChannelLast writes interleaved HWC values normalized to [0,1].
func fillChannelLast(tensor []float32, img *image.NRGBA, w, h int) {
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			px := row + x*4
			i := (y*w + x) * 3
			tensor[i+0] = float32(img.Pix[px+0]) / 255.0
			tensor[i+1] = float32(img.Pix[px+1]) / 255.0
			tensor[i+2] = float32(img.Pix[px+2]) / 255.0
		}
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
