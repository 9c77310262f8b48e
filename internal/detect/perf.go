package detect

import "sync"

// perfWindowSize bounds the rolling latency window.
const perfWindowSize = 100

// PerformanceStats is a point-in-time snapshot of the rolling window.
type PerformanceStats struct {
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	FPS                 float64 `json:"fps"`
	FramesProcessed     int64   `json:"frames_processed"`
}

// PerformanceTracker keeps a bounded FIFO of inference latencies. It is
// shared by every connection loop, so all access is mutex-guarded.
type PerformanceTracker struct {
	mu      sync.Mutex
	samples []float64
	frames  int64
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		samples: make([]float64, 0, perfWindowSize),
	}
}

// Record appends a latency sample in seconds, evicting the oldest entry once
// the window is full, and counts the frame as processed.
func (t *PerformanceTracker) Record(latencySeconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, latencySeconds)
	if len(t.samples) > perfWindowSize {
		t.samples = t.samples[1:]
	}
	t.frames++
}

// Stats returns the mean latency in milliseconds, the implied frames per
// second, and the total processed count. An empty window reports zeros.
func (t *PerformanceTracker) Stats() PerformanceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) == 0 {
		return PerformanceStats{FramesProcessed: t.frames}
	}

	var sum float64
	for _, s := range t.samples {
		sum += s
	}
	avg := sum / float64(len(t.samples))

	stats := PerformanceStats{
		AvgProcessingTimeMs: avg * 1000,
		FramesProcessed:     t.frames,
	}
	if avg > 0 {
		stats.FPS = 1.0 / avg
	}
	return stats
}

// FramesProcessed returns the lifetime successful-inference count.
func (t *PerformanceTracker) FramesProcessed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}
