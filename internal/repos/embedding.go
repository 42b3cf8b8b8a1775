package repos

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// Embeddings are stored as JSON arrays in text columns. Everything coming
// back from storage is normalized into []float32 here, so the engine never
// sees loosely-typed rows; a row that fails to parse surfaces as
// ErrMalformedVector and callers skip it.

func EncodeEmbedding(v []float32) (*string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

// DecodeEmbedding parses a stored embedding. A nil column decodes to nil
// (absent embedding, not an error). wantDim 0 skips the dimension check.
func DecodeEmbedding(raw *string, wantDim int) ([]float32, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedVector, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty array", apperrors.ErrMalformedVector)
	}
	if wantDim > 0 && len(v) != wantDim {
		return nil, fmt.Errorf("%w: want=%d got=%d", apperrors.ErrDimensionMismatch, wantDim, len(v))
	}
	return v, nil
}
