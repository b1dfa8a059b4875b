package logits

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	DefaultPenaltyBase   = 1.1
	DefaultPenaltyWindow = 5
)

// Source yields uniform values in [0, 1]. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Policy configures a single sampling call. The zero value samples from the
// full distribution at temperature 0, which means greedy.
type Policy struct {
	Temperature   float64
	PenaltyBase   float64
	PenaltyWindow int
	TopK          int
	TopP          float64
}

// DefaultPolicy returns the policy used when a generation config leaves
// sampling unspecified.
func DefaultPolicy() Policy {
	return Policy{
		Temperature:   0.7,
		PenaltyBase:   DefaultPenaltyBase,
		PenaltyWindow: DefaultPenaltyWindow,
		TopK:          50,
		TopP:          0.9,
	}
}

// Validate rejects settings no stage can interpret.
func (p Policy) Validate() error {
	if math.IsNaN(p.Temperature) || p.Temperature < 0 || math.IsInf(p.Temperature, 0) {
		return fmt.Errorf("temperature %v must be a finite value >= 0", p.Temperature)
	}
	if p.TopK < 0 {
		return fmt.Errorf("top-k %d must be >= 0", p.TopK)
	}
	if math.IsNaN(p.TopP) || p.TopP < 0 {
		return fmt.Errorf("top-p %v must be >= 0", p.TopP)
	}
	if p.PenaltyWindow < 0 {
		return fmt.Errorf("penalty window %d must be >= 0", p.PenaltyWindow)
	}
	if math.IsNaN(p.PenaltyBase) || p.PenaltyBase < 0 {
		return fmt.Errorf("penalty base %v must be >= 0", p.PenaltyBase)
	}
	return nil
}

// Greedy reports whether the policy always picks the highest score.
func (p Policy) Greedy() bool { return p.Temperature == 0 }

// Sampler binds a policy to a random source. It is not safe for concurrent
// use because the source is not.
type Sampler struct {
	src    Source
	policy Policy
}

// NewSampler returns a sampler drawing from a math/rand source seeded with
// seed.
func NewSampler(p Policy, seed int64) *Sampler {
	return NewSamplerWithSource(p, rand.New(rand.NewSource(seed)))
}

// NewSamplerWithSource returns a sampler drawing from src.
func NewSamplerWithSource(p Policy, src Source) *Sampler {
	return &Sampler{src: src, policy: p}
}

func (s *Sampler) Policy() Policy { return s.policy }

// Sample selects the next token id from scores. scores and prior are only
// read.
func (s *Sampler) Sample(scores []float32, prior []int) int {
	return Sample(scores, prior, s.policy, s.src)
}

// Sample runs the full pipeline over one score vector:
//
//  1. Temperature 0 returns the argmax of scores immediately. Otherwise every
//     score is divided by the temperature.
//  2. The repetition penalty rescales the most recent prior tokens.
//  3. Softmax turns scores into probabilities.
//  4. TopK keeps the k most probable entries when 0 < k < len(scores).
//  5. TopP keeps the nucleus when 0 < p < 1.
//  6. One uniform value from src selects an id in id order.
//  7. If rounding defeats step 6, a binary search over the normalized CDF is
//     tried, then the argmax of the probabilities.
//
// scores must not be empty.
func Sample(scores []float32, prior []int, p Policy, src Source) int {
	if p.Temperature <= 0 {
		return Argmax(scores)
	}
	x := ScaleTemperature(scores, p.Temperature)
	x = ApplyRepetitionPenalty(x, prior, p.PenaltyBase, p.PenaltyWindow)
	probs := Softmax(x)
	if p.TopK > 0 && p.TopK < len(probs) {
		probs = TopK(probs, p.TopK)
	}
	if p.TopP > 0 && p.TopP < 1 {
		probs = TopP(probs, p.TopP)
	}

	r := src.Float64()
	if id, ok := Draw(probs, r); ok {
		return id
	}
	if id, ok := DrawCDF(probs, r); ok {
		return id
	}
	return Argmax(probs)
}
