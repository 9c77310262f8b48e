package detect

import (
	"math"
	"testing"
)

func TestIoUIdenticalBoxes(t *testing.T) {
	box := Candidate{XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5}
	if got := IoU(box, box); math.Abs(float64(got)-1.0) > 1e-6 {
		t.Errorf("IoU(box, box) = %f, expected 1.0", got)
	}
}

func TestIoUDisjointBoxes(t *testing.T) {
	a := Candidate{XMin: 0.0, YMin: 0.0, XMax: 0.2, YMax: 0.2}
	b := Candidate{XMin: 0.5, YMin: 0.5, XMax: 0.8, YMax: 0.8}
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU of disjoint boxes = %f, expected 0", got)
	}
}

func TestIoUPartialOverlap(t *testing.T) {
	a := Candidate{XMin: 0.0, YMin: 0.0, XMax: 0.4, YMax: 0.4}
	b := Candidate{XMin: 0.2, YMin: 0.0, XMax: 0.6, YMax: 0.4}
	// intersection 0.2*0.4 = 0.08, union 0.16+0.16-0.08 = 0.24
	want := float32(0.08 / 0.24)
	if got := IoU(a, b); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("IoU = %f, expected %f", got, want)
	}
}

func TestNMSSuppressesOverlappingLowerScore(t *testing.T) {
	// Two boxes for the same object with IoU 0.8: at threshold 0.4 the
	// lower-scoring one must go.
	high := Candidate{Label: "person", Score: 0.9, XMin: 0.0, YMin: 0.0, XMax: 0.5, YMax: 0.4}
	low := Candidate{Label: "person", Score: 0.6, XMin: 0.0, YMin: 0.0, XMax: 0.4, YMax: 0.4}
	if iou := IoU(high, low); iou < 0.79 || iou > 0.81 {
		t.Fatalf("test fixture IoU = %f, expected ~0.8", iou)
	}

	kept := NonMaxSuppression([]Candidate{low, high}, 0.4)
	if len(kept) != 1 {
		t.Fatalf("kept %d boxes, expected 1", len(kept))
	}
	if kept[0].Score != 0.9 {
		t.Errorf("kept score %f, expected the higher-scoring box", kept[0].Score)
	}
}

func TestNMSKeepsNonOverlapping(t *testing.T) {
	candidates := []Candidate{
		{Score: 0.9, XMin: 0.0, YMin: 0.0, XMax: 0.2, YMax: 0.2},
		{Score: 0.8, XMin: 0.5, YMin: 0.5, XMax: 0.7, YMax: 0.7},
		{Score: 0.7, XMin: 0.0, YMin: 0.8, XMax: 0.2, YMax: 1.0},
	}
	kept := NonMaxSuppression(candidates, 0.4)
	if len(kept) != 3 {
		t.Errorf("kept %d boxes, expected all 3 disjoint boxes", len(kept))
	}
}

func TestNMSIsClassAgnostic(t *testing.T) {
	// Different labels still suppress each other.
	candidates := []Candidate{
		{Label: "person", Score: 0.9, XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5},
		{Label: "dog", Score: 0.8, XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5},
	}
	kept := NonMaxSuppression(candidates, 0.4)
	if len(kept) != 1 {
		t.Fatalf("kept %d boxes, expected cross-class suppression to 1", len(kept))
	}
	if kept[0].Label != "person" {
		t.Errorf("kept label %q, expected the higher-scoring candidate", kept[0].Label)
	}
}

func TestNMSSuppressesAtExactThreshold(t *testing.T) {
	a := Candidate{Score: 0.9, XMin: 0.0, YMin: 0.0, XMax: 0.4, YMax: 0.4}
	b := Candidate{Score: 0.5, XMin: 0.2, YMin: 0.0, XMax: 0.6, YMax: 0.4}
	threshold := IoU(a, b)

	kept := NonMaxSuppression([]Candidate{a, b}, threshold)
	if len(kept) != 1 {
		t.Errorf("IoU equal to threshold must suppress, kept %d", len(kept))
	}
}

func TestNMSProperties(t *testing.T) {
	candidates := []Candidate{
		{Score: 0.95, XMin: 0.10, YMin: 0.10, XMax: 0.40, YMax: 0.40},
		{Score: 0.90, XMin: 0.12, YMin: 0.11, XMax: 0.41, YMax: 0.42},
		{Score: 0.80, XMin: 0.60, YMin: 0.60, XMax: 0.90, YMax: 0.90},
		{Score: 0.70, XMin: 0.61, YMin: 0.59, XMax: 0.88, YMax: 0.91},
		{Score: 0.30, XMin: 0.05, YMin: 0.70, XMax: 0.25, YMax: 0.95},
	}
	const threshold = 0.4
	kept := NonMaxSuppression(candidates, threshold)

	if len(kept) == 0 || len(kept) > len(candidates) {
		t.Fatalf("output size %d out of range", len(kept))
	}
	// Output is a subset of the input.
	for _, k := range kept {
		found := false
		for _, c := range candidates {
			if c == k {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("kept box %+v is not in the input", k)
		}
	}
	// The globally highest-scoring box always survives.
	if kept[0].Score != 0.95 {
		t.Errorf("highest-scoring box was suppressed")
	}
	// No two survivors overlap at or above the threshold.
	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			if iou := IoU(kept[i], kept[j]); iou >= threshold {
				t.Errorf("kept boxes %d and %d overlap with IoU %f", i, j, iou)
			}
		}
	}
}

func TestNMSEmptyInput(t *testing.T) {
	if kept := NonMaxSuppression(nil, 0.4); kept != nil {
		t.Errorf("expected nil for empty input, got %v", kept)
	}
}
