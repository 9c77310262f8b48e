package detect

import "sort"

// IoU is the intersection area of two candidates divided by their union
// area, 0 when they do not overlap or the union is non-positive.
func IoU(a, b Candidate) float32 {
	xmin := maxf32(a.XMin, b.XMin)
	ymin := maxf32(a.YMin, b.YMin)
	xmax := minf32(a.XMax, b.XMax)
	ymax := minf32(a.YMax, b.YMax)

	if xmax < xmin || ymax < ymin {
		return 0
	}

	intersection := (xmax - xmin) * (ymax - ymin)
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// NonMaxSuppression greedily keeps the highest-scoring candidate and drops
// every remaining one overlapping it at or above the IoU threshold.
// Suppression compares candidates regardless of label: two touching objects
// of different classes still suppress each other. That matches the served
// model's historical behavior and is kept deliberately.
func NonMaxSuppression(candidates []Candidate, iouThreshold float32) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Candidate, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(sorted[i], sorted[j]) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func minf32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
