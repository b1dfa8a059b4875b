package inference

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samcharles93/tokengen/internal/logits"
)

// DefaultCapacity bounds the token buffer of a generation call when the
// request leaves it unset.
const DefaultCapacity = 1024

// Generator drives the stepping loop for one generation call: score the
// sequence, sample the next id, append it, and stop on a stop token or a
// length bound.
type Generator struct {
	Scorer     Scorer
	Sampler    *logits.Sampler
	VocabSize  int
	StopTokens []int

	// MaxLength bounds the whole sequence, prompt included.
	MaxLength int
	// MinLength suppresses stop tokens until that many ids were generated.
	MinLength int
	// Capacity bounds the token buffer.
	Capacity int
}

// RunWithContext extends prompt until a stop condition and returns the
// generated suffix. A prompt that already fills the capacity stops at once
// with StopCapacity. A scorer failure, a panic or context cancellation aborts
// the call and nothing generated so far is returned.
func (g *Generator) RunWithContext(ctx context.Context, prompt []int, stream func(id int)) ([]int, StopReason, Stats, error) {
	stats := Stats{PromptTokens: len(prompt)}
	start := time.Now()

	capacity := g.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if len(prompt) > capacity {
		return nil, "", stats, fmt.Errorf("%w: prompt of %d tokens exceeds capacity %d", ErrCapacityExceeded, len(prompt), capacity)
	}
	seq := make([]int, len(prompt), capacity)
	copy(seq, prompt)

	var reason StopReason
	for {
		if len(seq) >= g.MaxLength {
			reason = StopLength
			break
		}
		if len(seq) >= capacity {
			reason = StopCapacity
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, "", stats, err
		}

		scores, err := safeScore(ctx, g.Scorer, seq)
		if err != nil {
			return nil, "", stats, fmt.Errorf("score step %d: %w", stats.TokensGenerated, err)
		}
		if len(scores) != g.VocabSize {
			return nil, "", stats, fmt.Errorf("score step %d: got %d scores for a vocabulary of %d", stats.TokensGenerated, len(scores), g.VocabSize)
		}
		if stats.TokensGenerated < g.MinLength {
			suppress(scores, g.StopTokens)
		}

		next, err := safeSample(g.Sampler, scores, seq)
		if err != nil {
			return nil, "", stats, err
		}
		seq = append(seq, next)
		stats.TokensGenerated++
		if stream != nil {
			stream(next)
		}
		if slices.Contains(g.StopTokens, next) {
			reason = StopEOS
			break
		}
	}

	stats.Duration = time.Since(start)
	if stats.Duration.Seconds() > 0 {
		stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
	}
	return seq[len(prompt):], reason, stats, nil
}

func suppress(scores []float32, ids []int) {
	for _, id := range ids {
		if id >= 0 && id < len(scores) {
			scores[id] = float32(math.Inf(-1))
		}
	}
}

func safeScore(ctx context.Context, s Scorer, seq []int) (scores []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Score: %v", rec)
		}
	}()
	return s.Score(ctx, seq)
}

func safeSample(s *logits.Sampler, scores []float32, seq []int) (id int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Sample: %v", rec)
		}
	}()
	return s.Sample(scores, seq), nil
}
