package detect

// Detection is a single labeled box on the wire, coordinates normalized to
// the original frame.
type Detection struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
	XMin  float32 `json:"xmin"`
	YMin  float32 `json:"ymin"`
	XMax  float32 `json:"xmax"`
	YMax  float32 `json:"ymax"`
}

// Result is the per-frame message delivered over the side channel. All
// timestamps are milliseconds since the epoch. SendTS and Performance are
// populated only on mock-mode results.
type Result struct {
	FrameID     string            `json:"frame_id"`
	CaptureTS   int64             `json:"capture_ts"`
	RecvTS      int64             `json:"recv_ts"`
	InferenceTS int64             `json:"inference_ts"`
	SendTS      int64             `json:"send_ts,omitempty"`
	Detections  []Detection       `json:"detections"`
	Performance *PerformanceStats `json:"performance,omitempty"`
}

func candidatesToDetections(candidates []Candidate) []Detection {
	detections := make([]Detection, len(candidates))
	for i, c := range candidates {
		detections[i] = Detection{
			Label: c.Label,
			Score: c.Score,
			XMin:  c.XMin,
			YMin:  c.YMin,
			XMax:  c.XMax,
			YMax:  c.YMax,
		}
	}
	return detections
}
