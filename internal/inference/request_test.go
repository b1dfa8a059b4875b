package inference

import (
	"errors"
	"testing"

	"github.com/samcharles93/tokengen/internal/logits"
	"github.com/samcharles93/tokengen/internal/modelcfg"
)

func ptr[T any](v T) *T { return &v }

func TestResolveRequestDefaults(t *testing.T) {
	t.Parallel()

	gen := modelcfg.DefaultGeneration()
	req := ResolveRequest(RequestOptions{}, gen)
	if req.Seed != -1 {
		t.Fatalf("seed = %d, want -1", req.Seed)
	}
	if req.Policy != gen.Policy() {
		t.Fatalf("policy = %+v, want %+v", req.Policy, gen.Policy())
	}
	if req.MaxLength != gen.MaxLength || req.MinLength != gen.MinLength {
		t.Fatalf("length bounds = %d/%d", req.MaxLength, req.MinLength)
	}
	if req.Capacity != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", req.Capacity, DefaultCapacity)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestResolveRequestOverrides(t *testing.T) {
	t.Parallel()

	opts := RequestOptions{
		Seed:              ptr(int64(9)),
		Temperature:       ptr(1.2),
		TopK:              ptr(3),
		TopP:              ptr(0.5),
		RepetitionPenalty: ptr(1.5),
		PenaltyWindow:     ptr(8),
		MaxLength:         ptr(64),
		MinLength:         ptr(2),
		Capacity:          ptr(128),
		MaxOutputBytes:    ptr(40),
		StopTokens:        []int{7, 8},
	}
	req := ResolveRequest(opts, modelcfg.DefaultGeneration())
	want := Request{
		Seed: 9,
		Policy: logits.Policy{
			Temperature:   1.2,
			PenaltyBase:   1.5,
			PenaltyWindow: 8,
			TopK:          3,
			TopP:          0.5,
		},
		MaxLength:      64,
		MinLength:      2,
		Capacity:       128,
		MaxOutputBytes: 40,
		StopTokens:     []int{7, 8},
	}
	if req.Policy != want.Policy || req.Seed != want.Seed || req.MaxLength != want.MaxLength ||
		req.MinLength != want.MinLength || req.Capacity != want.Capacity || req.MaxOutputBytes != want.MaxOutputBytes {
		t.Fatalf("ResolveRequest = %+v, want %+v", req, want)
	}
	if len(req.StopTokens) != 2 || req.StopTokens[0] != 7 || req.StopTokens[1] != 8 {
		t.Fatalf("stop tokens = %v", req.StopTokens)
	}
}

func TestResolveRequestGreedyAndPenaltyFloor(t *testing.T) {
	t.Parallel()

	gen := modelcfg.DefaultGeneration()
	gen.RepetitionPenalty = 1.3
	req := ResolveRequest(RequestOptions{Greedy: ptr(true), Temperature: ptr(0.9), RepetitionPenalty: ptr(0.8)}, gen)
	if !req.Policy.Greedy() {
		t.Fatalf("greedy override ignored: %+v", req.Policy)
	}
	if req.Policy.PenaltyBase != logits.DefaultPenaltyBase {
		t.Fatalf("penalty base = %v, want %v", req.Policy.PenaltyBase, logits.DefaultPenaltyBase)
	}

	req = ResolveRequest(RequestOptions{Greedy: ptr(false)}, gen)
	if req.Policy.Temperature != gen.Temperature || req.Policy.PenaltyBase != 1.3 {
		t.Fatalf("unexpected policy: %+v", req.Policy)
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  func(*Request)
	}{
		{"zero-capacity", func(r *Request) { r.Capacity = 0 }},
		{"negative-max-length", func(r *Request) { r.MaxLength = -1 }},
		{"negative-min-length", func(r *Request) { r.MinLength = -2 }},
		{"negative-top-k", func(r *Request) { r.Policy.TopK = -1 }},
		{"negative-temperature", func(r *Request) { r.Policy.Temperature = -0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mod(&req)
			err := req.Validate()
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRequestSeed(t *testing.T) {
	t.Parallel()

	req := Request{Seed: 5}
	if req.seed() != 5 {
		t.Fatalf("seed() = %d, want 5", req.seed())
	}
	req.Seed = -1
	if req.seed() < 0 {
		t.Fatalf("clock seed should be non-negative, got %d", req.seed())
	}
}
