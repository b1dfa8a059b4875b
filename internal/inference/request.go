package inference

import (
	"time"

	"github.com/samcharles93/tokengen/internal/logits"
	"github.com/samcharles93/tokengen/internal/modelcfg"
)

// Request is a fully resolved generation request.
type Request struct {
	// Seed feeds both the sampler and the default scorer. Negative means
	// seed from the clock.
	Seed   int64
	Policy logits.Policy

	MaxLength      int
	MinLength      int
	Capacity       int
	MaxOutputBytes int
	StopTokens     []int
}

// RequestOptions holds caller overrides. Nil fields fall back to the model's
// generation defaults.
type RequestOptions struct {
	Seed *int64

	Temperature       *float64
	TopK              *int
	TopP              *float64
	RepetitionPenalty *float64
	PenaltyWindow     *int
	Greedy            *bool

	MaxLength      *int
	MinLength      *int
	Capacity       *int
	MaxOutputBytes *int
	StopTokens     []int
}

// ResolveRequest layers opts over the generation defaults of a model.
func ResolveRequest(opts RequestOptions, defaults modelcfg.Generation) Request {
	req := Request{
		Seed:      -1,
		Policy:    defaults.Policy(),
		MaxLength: defaults.MaxLength,
		MinLength: defaults.MinLength,
		Capacity:  DefaultCapacity,
	}

	if opts.Seed != nil {
		req.Seed = *opts.Seed
	}
	if opts.Temperature != nil {
		req.Policy.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.Policy.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		req.Policy.TopP = *opts.TopP
	}
	if opts.RepetitionPenalty != nil {
		if *opts.RepetitionPenalty > 1 {
			req.Policy.PenaltyBase = *opts.RepetitionPenalty
		} else {
			req.Policy.PenaltyBase = logits.DefaultPenaltyBase
		}
	}
	if opts.PenaltyWindow != nil {
		req.Policy.PenaltyWindow = *opts.PenaltyWindow
	}
	if opts.Greedy != nil && *opts.Greedy {
		req.Policy.Temperature = 0
	}
	if opts.MaxLength != nil {
		req.MaxLength = *opts.MaxLength
	}
	if opts.MinLength != nil {
		req.MinLength = *opts.MinLength
	}
	if opts.Capacity != nil {
		req.Capacity = *opts.Capacity
	}
	if opts.MaxOutputBytes != nil {
		req.MaxOutputBytes = *opts.MaxOutputBytes
	}
	req.StopTokens = append(req.StopTokens, opts.StopTokens...)
	return req
}

// Validate rejects requests no generation call can serve.
func (r Request) Validate() error {
	if err := r.Policy.Validate(); err != nil {
		return invalidArgument("sampling policy: %v", err)
	}
	if r.Capacity <= 0 {
		return invalidArgument("capacity %d must be positive", r.Capacity)
	}
	if r.MaxLength < 0 || r.MinLength < 0 {
		return invalidArgument("length bounds must be >= 0 (max %d, min %d)", r.MaxLength, r.MinLength)
	}
	return nil
}

func (r Request) seed() int64 {
	if r.Seed < 0 {
		return time.Now().UnixNano()
	}
	return r.Seed
}
