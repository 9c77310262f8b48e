package detect

import (
	"math"
	"testing"
)

const testRowLen = 5 + 80

// makeRow builds a raw output row with the given geometry, objectness and a
// single class score.
func makeRow(cx, cy, w, h, objectness float32, classID int, classScore float32) []float32 {
	row := make([]float32, testRowLen)
	row[0], row[1], row[2], row[3] = cx, cy, w, h
	row[4] = objectness
	row[5+classID] = classScore
	return row
}

func testDecoder(layout Layout, size int) *Decoder {
	cfg := ModelConfig{
		InputWidth:    size,
		InputHeight:   size,
		Layout:        layout,
		ConfThreshold: DefaultConfThreshold,
		NMSThreshold:  DefaultNMSThreshold,
	}
	return NewDecoder(cfg, cocoLabels)
}

func TestDecodeConfidenceFilter(t *testing.T) {
	dec := testDecoder(LayoutChannelFirst, 640)

	out := append(
		makeRow(320, 320, 100, 100, 0.9, 0, 0.9), // 0.81, retained
		makeRow(320, 320, 100, 100, 0.5, 0, 0.2)..., // 0.10, dropped
	)

	got := dec.Decode(out, 2, testRowLen, nil, 640, 480)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates, expected 1", len(got))
	}
	if got[0].Label != "person" {
		t.Errorf("label = %q, expected person", got[0].Label)
	}
	if math.Abs(float64(got[0].Score)-0.81) > 1e-6 {
		t.Errorf("score = %f, expected 0.81", got[0].Score)
	}
}

func TestDecodeFallbackNormalization(t *testing.T) {
	dec := testDecoder(LayoutChannelFirst, 640)

	out := makeRow(320, 320, 100, 100, 0.9, 0, 0.9)
	got := dec.Decode(out, 1, testRowLen, nil, 1280, 720)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates, expected 1", len(got))
	}

	// Without transform params, coordinates are normalized by the model
	// input size directly.
	c := got[0]
	approx(t, "xmin", c.XMin, (320-50)/640.0)
	approx(t, "xmax", c.XMax, (320+50)/640.0)
	approx(t, "ymin", c.YMin, (320-50)/640.0)
	approx(t, "ymax", c.YMax, (320+50)/640.0)
}

func TestDecodeLetterboxRoundTrip(t *testing.T) {
	dec := testDecoder(LayoutChannelLast, 416)

	// 640x480 source letterboxed into 416x416: scale 0.65, padY 52.
	params := TransformParams{Scale: 0.65, PadX: 0, PadY: 52}
	origW, origH := 640, 480

	// A box at known original coordinates, mapped into model space by the
	// forward letterbox transform.
	oxmin, oymin, oxmax, oymax := float32(100), float32(120), float32(300), float32(240)
	mxmin := oxmin*params.Scale + params.PadX
	mxmax := oxmax*params.Scale + params.PadX
	mymin := oymin*params.Scale + params.PadY
	mymax := oymax*params.Scale + params.PadY

	out := makeRow(
		(mxmin+mxmax)/2, (mymin+mymax)/2,
		mxmax-mxmin, mymax-mymin,
		0.9, 0, 0.9,
	)

	got := dec.Decode(out, 1, testRowLen, &params, origW, origH)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates, expected 1", len(got))
	}

	c := got[0]
	approx(t, "xmin", c.XMin, float64(oxmin)/float64(origW))
	approx(t, "ymin", c.YMin, float64(oymin)/float64(origH))
	approx(t, "xmax", c.XMax, float64(oxmax)/float64(origW))
	approx(t, "ymax", c.YMax, float64(oymax)/float64(origH))
}

func TestDecodeClipsToFrame(t *testing.T) {
	dec := testDecoder(LayoutChannelFirst, 640)

	// Box hanging past the left and top edges.
	out := makeRow(10, 10, 100, 100, 0.9, 0, 0.9)
	got := dec.Decode(out, 1, testRowLen, &TransformParams{Scale: 1, PadX: 0, PadY: 0}, 640, 480)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates, expected 1", len(got))
	}
	c := got[0]
	if c.XMin < 0 || c.YMin < 0 || c.XMax > 1 || c.YMax > 1 {
		t.Errorf("coordinates out of [0,1]: %+v", c)
	}
	if c.XMin >= c.XMax || c.YMin >= c.YMax {
		t.Errorf("degenerate box survived clipping: %+v", c)
	}
}

func TestDecodeDiscardsDegenerateBoxes(t *testing.T) {
	dec := testDecoder(LayoutChannelFirst, 640)

	// Zero-width box: confident, but geometrically empty.
	out := makeRow(320, 320, 0, 100, 0.9, 0, 0.9)
	if got := dec.Decode(out, 1, testRowLen, nil, 640, 480); len(got) != 0 {
		t.Errorf("degenerate box was not discarded: %+v", got)
	}
}

func TestDecodeArgmaxPicksBestClass(t *testing.T) {
	dec := testDecoder(LayoutChannelFirst, 640)

	row := makeRow(320, 320, 100, 100, 0.9, 2, 0.8) // "car"
	row[5+0] = 0.3
	row[5+7] = 0.5

	got := dec.Decode(row, 1, testRowLen, nil, 640, 480)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates, expected 1", len(got))
	}
	if got[0].Label != "car" {
		t.Errorf("label = %q, expected car", got[0].Label)
	}
}

func approx(t *testing.T, name string, got float32, want float64) {
	t.Helper()
	if math.Abs(float64(got)-want) > 1e-3 {
		t.Errorf("%s = %f, expected %f within 1e-3", name, got, want)
	}
}
