package inference

import (
	"context"
	"math/rand"
	"sync"
)

// Scorer produces a fresh score vector, one entry per vocabulary id, for the
// sequence generated so far. seq must not be retained or modified.
type Scorer interface {
	Score(ctx context.Context, seq []int) ([]float32, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, seq []int) ([]float32, error)

func (f ScorerFunc) Score(ctx context.Context, seq []int) ([]float32, error) {
	return f(ctx, seq)
}

const (
	heuristicWindow = 5
	heuristicNoise  = 2.0

	scorerSeedSalt = 0x5DEECE66D
)

// scorerSeed derives the default scorer's seed from the request seed so its
// noise stream differs from the sampler's.
func scorerSeed(seed int64) int64 {
	return seed ^ scorerSeedSalt
}

// HeuristicScorer stands in for a forward pass. Every id starts at zero, each
// occurrence among the last five tokens adds one, and every id gets uniform
// noise in [0, 2).
type HeuristicScorer struct {
	vocabSize int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewHeuristicScorer(vocabSize int, seed int64) *HeuristicScorer {
	return &HeuristicScorer{
		vocabSize: vocabSize,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (h *HeuristicScorer) Score(_ context.Context, seq []int) ([]float32, error) {
	scores := make([]float32, h.vocabSize)
	start := max(len(seq)-heuristicWindow, 0)
	for _, id := range seq[start:] {
		if id >= 0 && id < len(scores) {
			scores[id]++
		}
	}

	h.mu.Lock()
	for i := range scores {
		scores[i] += float32(h.rng.Float64() * heuristicNoise)
	}
	h.mu.Unlock()
	return scores, nil
}
