package inference

import (
	"context"
	"fmt"

	"github.com/samcharles93/tokengen/internal/tokenizer"
)

// EngineImpl binds a registry handle to the Engine interface. Close unloads
// the model.
type EngineImpl struct {
	reg    *Registry
	handle Handle
}

// Engine returns an Engine for a loaded model.
func (r *Registry) Engine(h Handle) (*EngineImpl, error) {
	if _, err := r.lookup(h); err != nil {
		return nil, err
	}
	return &EngineImpl{reg: r, handle: h}, nil
}

func (e *EngineImpl) Handle() Handle { return e.handle }

func (e *EngineImpl) Generate(ctx context.Context, prompt string, req Request, stream StreamFunc) (*Result, error) {
	if e == nil || e.reg == nil {
		return nil, ErrNotInitialized
	}
	return e.reg.GenerateStream(ctx, e.handle, prompt, req, stream)
}

func (e *EngineImpl) Close() error {
	if e == nil || e.reg == nil {
		return nil
	}
	err := e.reg.Unload(e.handle)
	e.reg = nil
	return err
}

func safeEncode(tok *tokenizer.Tokenizer, prompt string, capacity int) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.Encode(prompt, capacity)
}

var _ Engine = (*EngineImpl)(nil)
