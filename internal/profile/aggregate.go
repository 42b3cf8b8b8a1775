package profile

import (
	"math"
	"time"
)

const secondsPerDay = 86400.0

// HistoryEntry is one prior post's usable embedding and creation time.
type HistoryEntry struct {
	Embedding []float32
	CreatedAt time.Time
}

// Aggregate folds a user's post history into one unit-normalized
// representative vector. The new post participates at weight 1.0; each
// historical entry decays as exp(-ln2/halfLife * ageDays). Entries whose
// embedding is missing or of the wrong dimensionality contribute nothing.
//
// The result is order-insensitive up to floating tolerance: permuting
// history does not change the weighted mean.
func Aggregate(newEmbedding []float32, history []HistoryEntry, now time.Time, cfg Config) []float32 {
	cfg = cfg.withDefaults()
	if len(history) == 0 {
		return Normalize(newEmbedding)
	}

	lambda := math.Ln2 / cfg.HalfLifeDays
	dim := len(newEmbedding)

	weightedSum := make([]float64, dim)
	totalWeight := 1.0
	for j, x := range newEmbedding {
		weightedSum[j] = float64(x)
	}

	for _, entry := range history {
		if len(entry.Embedding) != dim {
			continue
		}
		ageDays := now.Sub(entry.CreatedAt).Seconds() / secondsPerDay
		w := math.Exp(-lambda * ageDays)
		for j, x := range entry.Embedding {
			weightedSum[j] += w * float64(x)
		}
		totalWeight += w
	}

	if totalWeight <= 0 {
		return Normalize(newEmbedding)
	}

	mean := make([]float32, dim)
	for j := range weightedSum {
		mean[j] = float32(weightedSum[j] / totalWeight)
	}
	return Normalize(mean)
}
