package profile

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestAggregateEmptyHistory(t *testing.T) {
	now := time.Now()
	newEmb := []float32{3, 4}
	got := Aggregate(newEmb, nil, now, Config{HalfLifeDays: 30})
	want := Normalize(newEmb)
	if !vecAlmostEqual(got, want) {
		t.Fatalf("empty history: want=%v got=%v", want, got)
	}
}

func TestAggregateHalfLifeWeights(t *testing.T) {
	now := time.Now()
	// A zero-age history entry carries weight 1.0, same as the new post, so
	// the mean lands exactly between the two directions.
	got := Aggregate(
		[]float32{1, 0},
		[]HistoryEntry{{Embedding: []float32{0, 1}, CreatedAt: now}},
		now,
		Config{HalfLifeDays: 30},
	)
	want := Normalize([]float32{0.5, 0.5})
	if !vecAlmostEqual(got, want) {
		t.Fatalf("zero-age entry: want=%v got=%v", want, got)
	}

	// An entry exactly one half-life old carries weight 0.5.
	got = Aggregate(
		[]float32{1, 0},
		[]HistoryEntry{{Embedding: []float32{0, 1}, CreatedAt: now.Add(-30 * 24 * time.Hour)}},
		now,
		Config{HalfLifeDays: 30},
	)
	want = Normalize([]float32{1.0 / 1.5, 0.5 / 1.5})
	if !vecAlmostEqual(got, want) {
		t.Fatalf("half-life entry: want=%v got=%v", want, got)
	}
}

func TestAggregateSpecScenario(t *testing.T) {
	// history=[v=[1,0], age=60d], new=[0,1], half-life=30d: history weight is
	// exp(-ln2*2)=0.25 and the weighted mean normalizes to ~[0.243, 0.970].
	now := time.Now()
	got := Aggregate(
		[]float32{0, 1},
		[]HistoryEntry{{Embedding: []float32{1, 0}, CreatedAt: now.Add(-60 * 24 * time.Hour)}},
		now,
		Config{HalfLifeDays: 30},
	)
	if math.Abs(float64(got[0])-0.24254) > 1e-3 || math.Abs(float64(got[1])-0.97014) > 1e-3 {
		t.Fatalf("spec scenario: want~[0.243 0.970] got=%v", got)
	}
}

func TestAggregateOrderInsensitive(t *testing.T) {
	now := time.Now()
	rng := rand.New(rand.NewSource(7))

	history := make([]HistoryEntry, 20)
	for i := range history {
		emb := make([]float32, 8)
		for j := range emb {
			emb[j] = rng.Float32()*2 - 1
		}
		history[i] = HistoryEntry{
			Embedding: emb,
			CreatedAt: now.Add(-time.Duration(rng.Intn(120*24)) * time.Hour),
		}
	}
	newEmb := make([]float32, 8)
	for j := range newEmb {
		newEmb[j] = rng.Float32()*2 - 1
	}

	want := Aggregate(newEmb, history, now, Config{HalfLifeDays: 30})

	shuffled := make([]HistoryEntry, len(history))
	copy(shuffled, history)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	got := Aggregate(newEmb, shuffled, now, Config{HalfLifeDays: 30})
	if !vecAlmostEqual(got, want) {
		t.Fatalf("order sensitivity: %v vs %v", got, want)
	}
}

func TestAggregateSkipsMismatchedEntries(t *testing.T) {
	now := time.Now()
	clean := Aggregate(
		[]float32{0, 1},
		[]HistoryEntry{{Embedding: []float32{1, 0}, CreatedAt: now}},
		now,
		Config{HalfLifeDays: 30},
	)
	withJunk := Aggregate(
		[]float32{0, 1},
		[]HistoryEntry{
			{Embedding: []float32{1, 0}, CreatedAt: now},
			{Embedding: nil, CreatedAt: now},
			{Embedding: []float32{1, 2, 3}, CreatedAt: now},
		},
		now,
		Config{HalfLifeDays: 30},
	)
	if !vecAlmostEqual(clean, withJunk) {
		t.Fatalf("mismatched entries should contribute nothing: %v vs %v", withJunk, clean)
	}
}

func TestAggregateDefaultHalfLife(t *testing.T) {
	now := time.Now()
	got := Aggregate(
		[]float32{0, 1},
		[]HistoryEntry{{Embedding: []float32{1, 0}, CreatedAt: now.Add(-30 * 24 * time.Hour)}},
		now,
		Config{},
	)
	want := Normalize([]float32{0.5 / 1.5, 1.0 / 1.5})
	if !vecAlmostEqual(got, want) {
		t.Fatalf("default half-life should be 30d: want=%v got=%v", want, got)
	}
}
