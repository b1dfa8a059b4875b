package inference

import (
	"context"
	"time"
)

// StreamFunc receives the surface text of each generated token as it is
// sampled. Tokens without text (bos, eos, pad) are not streamed.
type StreamFunc func(token string)

// Engine generates text from a single loaded model.
type Engine interface {
	Generate(ctx context.Context, prompt string, req Request, stream StreamFunc) (*Result, error)
	Close() error
}

// StopReason says why a generation call left the stepping loop.
type StopReason string

const (
	// StopEOS means a stop token was sampled.
	StopEOS StopReason = "eos"
	// StopLength means the sequence reached the maximum length.
	StopLength StopReason = "length"
	// StopCapacity means the token buffer is full.
	StopCapacity StopReason = "capacity"
)

type Stats struct {
	PromptTokens    int           `json:"prompt_tokens"`
	TokensGenerated int           `json:"tokens_generated"`
	Duration        time.Duration `json:"duration_ns"`
	TPS             float64       `json:"tokens_per_second"`
}

// Result is the outcome of one generation call. Tokens holds the generated
// suffix only; Text is its detokenized form.
type Result struct {
	RequestID  string     `json:"request_id"`
	Text       string     `json:"text"`
	Prompt     []int      `json:"prompt"`
	Tokens     []int      `json:"tokens"`
	StopReason StopReason `json:"stop_reason"`
	Stats      Stats      `json:"stats"`
}
