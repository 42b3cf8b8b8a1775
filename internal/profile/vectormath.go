package profile

import (
	"fmt"
	"math"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// WeightedSum accumulates vectors elementwise scaled by their weights. All
// vectors must share one length; an unweighted average is recoverable by
// passing equal weights summing to 1.
func WeightedSum(vectors [][]float32, weights []float64) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no vectors", apperrors.ErrInvalidArgument)
	}
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("%w: %d vectors vs %d weights", apperrors.ErrInvalidArgument, len(vectors), len(weights))
	}
	dim := len(vectors[0])
	out := make([]float32, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: want=%d got=%d", apperrors.ErrDimensionMismatch, dim, len(v))
		}
		w := weights[i]
		for j := range v {
			out[j] += float32(w * float64(v[j]))
		}
	}
	return out, nil
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged; that is a defined edge case, not an error.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Rescale linearly maps score from [floor, ceiling] onto [0,1], clamped on
// both ends. Scores at or below floor saturate at 0 so near-threshold noise
// does not read as compatibility.
func Rescale(score, floor, ceiling float64) float64 {
	if ceiling <= floor {
		if score >= ceiling {
			return 1
		}
		return 0
	}
	scaled := (score - floor) / (ceiling - floor)
	return Clamp(scaled, 0, 1)
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Cosine computes cosine similarity over float32 vectors. Mismatched or
// empty inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
