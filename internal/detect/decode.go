package detect

// Candidate is a scored, labeled box in [0,1] coordinates of the original
// frame. XMin < XMax and YMin < YMax always hold; the decoder discards
// anything that would violate it.
type Candidate struct {
	Label string
	Score float32
	XMin  float32
	YMin  float32
	XMax  float32
	YMax  float32
}

// Decoder turns raw model output rows into candidates in original-frame
// coordinates.
type Decoder struct {
	cfg    ModelConfig
	labels []string
}

func NewDecoder(cfg ModelConfig, labels []string) *Decoder {
	return &Decoder{cfg: cfg, labels: labels}
}

// Decode reads rows of (cx, cy, w, h, objectness, class scores...) from a
// flat output buffer. params inverts the preprocessing transform back into
// the source frame; when nil, coordinates are normalized directly by the
// model input size instead.
func (d *Decoder) Decode(out []float32, rows, rowLen int, params *TransformParams, origW, origH int) []Candidate {
	if rowLen < 6 || rows <= 0 || len(out) < rows*rowLen {
		return nil
	}

	candidates := make([]Candidate, 0, 32)
	for i := 0; i < rows; i++ {
		row := out[i*rowLen : (i+1)*rowLen]

		classID, best := argmax(row[5:])
		confidence := row[4] * best
		if confidence < d.cfg.ConfThreshold {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		xmin := cx - w/2
		ymin := cy - h/2
		xmax := cx + w/2
		ymax := cy + h/2

		if params != nil {
			xmin = mapToOriginal(xmin, params.PadX, params.Scale, origW)
			xmax = mapToOriginal(xmax, params.PadX, params.Scale, origW)
			ymin = mapToOriginal(ymin, params.PadY, params.Scale, origH)
			ymax = mapToOriginal(ymax, params.PadY, params.Scale, origH)
			xmin /= float32(origW)
			xmax /= float32(origW)
			ymin /= float32(origH)
			ymax /= float32(origH)
		} else {
			xmin = clamp01(xmin / float32(d.cfg.InputWidth))
			xmax = clamp01(xmax / float32(d.cfg.InputWidth))
			ymin = clamp01(ymin / float32(d.cfg.InputHeight))
			ymax = clamp01(ymax / float32(d.cfg.InputHeight))
		}

		if xmax <= xmin || ymax <= ymin {
			continue
		}

		candidates = append(candidates, Candidate{
			Label: d.labelFor(classID),
			Score: confidence,
			XMin:  xmin,
			YMin:  ymin,
			XMax:  xmax,
			YMax:  ymax,
		})
	}
	return candidates
}

func (d *Decoder) labelFor(classID int) string {
	if classID >= 0 && classID < len(d.labels) {
		return d.labels[classID]
	}
	return "unknown"
}

// mapToOriginal undoes padding and scaling, then clips into the frame.
func mapToOriginal(v, pad, scale float32, origDim int) float32 {
	if scale <= 0 {
		return 0
	}
	v = (v - pad) / scale
	if v < 0 {
		return 0
	}
	if limit := float32(origDim - 1); v > limit {
		return limit
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func argmax(scores []float32) (int, float32) {
	idx, best := 0, float32(0)
	for i, s := range scores {
		if i == 0 || s > best {
			idx, best = i, s
		}
	}
	return idx, best
}
