package profile

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

const tol = 1e-5

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tol
}

func vecAlmostEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !almostEqual(float64(a[i]), float64(b[i])) {
			return false
		}
	}
	return true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalizeUnitLength(t *testing.T) {
	cases := []struct {
		name string
		in   []float32
	}{
		{name: "axis", in: []float32{3, 0, 0}},
		{name: "mixed_signs", in: []float32{1, -2, 2}},
		{name: "tiny_components", in: []float32{0.001, 0.002, -0.003}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if !almostEqual(norm(got), 1) {
				t.Fatalf("norm: want=1 got=%v", norm(got))
			}
			again := Normalize(got)
			if !vecAlmostEqual(again, got) {
				t.Fatalf("normalize not idempotent: %v vs %v", again, got)
			}
		})
	}
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	in := []float32{0, 0, 0}
	got := Normalize(in)
	if !vecAlmostEqual(got, in) {
		t.Fatalf("zero vector: want unchanged, got %v", got)
	}
}

func TestWeightedSum(t *testing.T) {
	got, err := WeightedSum(
		[][]float32{{1, 0}, {0, 1}},
		[]float64{0.5, 0.5},
	)
	if err != nil {
		t.Fatalf("WeightedSum: %v", err)
	}
	if !vecAlmostEqual(got, []float32{0.5, 0.5}) {
		t.Fatalf("weighted sum: want=[0.5 0.5] got=%v", got)
	}
}

func TestWeightedSumDimensionMismatch(t *testing.T) {
	_, err := WeightedSum(
		[][]float32{{1, 0}, {0, 1, 0}},
		[]float64{1, 1},
	)
	if !errors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func TestRescale(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		floor float64
		want  float64
	}{
		{name: "at_floor", score: 0.5, floor: 0.5, want: 0},
		{name: "below_floor_saturates", score: 0.2, floor: 0.5, want: 0},
		{name: "negative_cosine_saturates", score: -0.9, floor: 0.1, want: 0},
		{name: "at_ceiling", score: 1.0, floor: 0.5, want: 1},
		{name: "above_ceiling_clamped", score: 1.2, floor: 0.5, want: 1},
		{name: "midpoint", score: 0.75, floor: 0.5, want: 0.5},
		{name: "spec_scenario_a", score: 0.92, floor: 0.5, want: 0.84},
		{name: "spec_scenario_b", score: 0.55, floor: 0.5, want: 0.10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rescale(tc.score, tc.floor, 1.0)
			if !almostEqual(got, tc.want) {
				t.Fatalf("Rescale(%v, %v, 1)=%v, want %v", tc.score, tc.floor, got, tc.want)
			}
		})
	}
}

func TestRescaleMonotone(t *testing.T) {
	prev := -1.0
	for x := -1.0; x <= 1.2; x += 0.01 {
		got := Rescale(x, 0.3, 1.0)
		if got < prev {
			t.Fatalf("not monotone at x=%v: %v < %v", x, got, prev)
		}
		prev = got
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); !almostEqual(got, 1) {
		t.Fatalf("identical vectors: want=1 got=%v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); !almostEqual(got, 0) {
		t.Fatalf("orthogonal vectors: want=0 got=%v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Fatalf("mismatched lengths: want=0 got=%v", got)
	}
}
