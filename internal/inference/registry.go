package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/tokengen/internal/blob"
	"github.com/samcharles93/tokengen/internal/logger"
	"github.com/samcharles93/tokengen/internal/logits"
	"github.com/samcharles93/tokengen/internal/modelcfg"
	"github.com/samcharles93/tokengen/internal/tokenizer"
)

const DefaultMaxSlots = 8

// Handle names a loaded model. A handle goes stale when its model is
// unloaded, even if the slot is later reused.
type Handle struct {
	Index uint32 `json:"index"`
	Gen   uint32 `json:"gen"`
}

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.Index, h.Gen)
}

type Options struct {
	// MaxSlots bounds the number of models loaded at once.
	MaxSlots int
	// MaxMemory bounds the combined buffer size of all loaded models in
	// bytes. Zero means unbounded.
	MaxMemory int64
	Logger    logger.Logger
}

// LoadInput is everything a slot is built from. The registry takes ownership
// of both blobs whether or not the load succeeds.
type LoadInput struct {
	Name          string
	Model         modelcfg.Model
	Tokenizer     modelcfg.Tokenizer
	Generation    modelcfg.Generation
	Weights       blob.Blob
	TokenizerData blob.Blob
	// Scorer replaces the per-call HeuristicScorer when set.
	Scorer Scorer
}

// Metrics are the usage counters of a loaded model.
type Metrics struct {
	MemoryUsage       int64         `json:"memory_usage"`
	LoadTime          time.Duration `json:"load_time_ns"`
	LastInferenceTime time.Duration `json:"last_inference_time_ns"`
	Generations       int           `json:"generations"`
	TokensGenerated   int           `json:"tokens_generated"`
}

// ModelInfo is a snapshot of a loaded model.
type ModelInfo struct {
	Handle     Handle              `json:"handle"`
	Name       string              `json:"name"`
	Type       modelcfg.ModelType  `json:"model_type"`
	VocabSize  int                 `json:"vocab_size"`
	Config     modelcfg.Model      `json:"config"`
	Tokenizer  modelcfg.Tokenizer  `json:"tokenizer"`
	Generation modelcfg.Generation `json:"generation"`
	LoadedAt   time.Time           `json:"loaded_at"`
	Metrics    Metrics             `json:"metrics"`
}

type loadedModel struct {
	name       string
	cfg        modelcfg.Model
	tokCfg     modelcfg.Tokenizer
	gen        modelcfg.Generation
	weights    blob.Blob
	tokData    blob.Blob
	tok        *tokenizer.Tokenizer
	scorer     Scorer
	loadedAt   time.Time
	stopTokens []int

	mu      sync.Mutex
	metrics Metrics
}

func (m *loadedModel) close() error {
	return errors.Join(m.weights.Close(), m.tokData.Close())
}

type slot struct {
	gen   uint32
	model *loadedModel
}

// Registry is a fixed-capacity arena of model slots. It is safe for
// concurrent use, but a model must not be unloaded while a generation call
// against it is running.
type Registry struct {
	mu      sync.RWMutex
	slots   []slot
	memUsed int64
	closed  bool

	maxMemory int64
	log       logger.Logger
}

func NewRegistry(opts Options) *Registry {
	n := opts.MaxSlots
	if n <= 0 {
		n = DefaultMaxSlots
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Registry{
		slots:     make([]slot, n),
		maxMemory: opts.MaxMemory,
		log:       log,
	}
}

// Load validates in, builds the model's tokenizer and stores it in a free
// slot. On any failure both blobs are closed.
func (r *Registry) Load(in LoadInput) (Handle, error) {
	start := time.Now()
	cleanup := func(err error) (Handle, error) {
		for _, b := range []blob.Blob{in.Weights, in.TokenizerData} {
			if b != nil {
				_ = b.Close()
			}
		}
		return Handle{}, err
	}

	if r == nil {
		return cleanup(ErrNotInitialized)
	}
	if in.Weights == nil || in.Weights.Len() == 0 {
		return cleanup(invalidArgument("weights buffer is required"))
	}
	if in.TokenizerData == nil {
		return cleanup(invalidArgument("tokenizer data buffer is required"))
	}
	if err := in.Generation.Validate(); err != nil {
		return cleanup(loadFailure("generation config", err))
	}
	tok, err := tokenizer.New(modelcfg.TokenizerConfig(in.Model, in.Tokenizer))
	if err != nil {
		return cleanup(loadFailure("tokenizer", err))
	}

	name := in.Name
	if name == "" {
		name = in.Model.Name
	}
	m := &loadedModel{
		name:       name,
		cfg:        in.Model,
		tokCfg:     in.Tokenizer,
		gen:        in.Generation,
		weights:    in.Weights,
		tokData:    in.TokenizerData,
		tok:        tok,
		scorer:     in.Scorer,
		stopTokens: BuildStopTokens(tok.EOSID(), in.Generation.ForcedEOSTokenID),
	}
	mem := int64(in.Weights.Len()) + int64(in.TokenizerData.Len())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return cleanup(ErrNotInitialized)
	}
	if r.maxMemory > 0 && r.memUsed+mem > r.maxMemory {
		used := r.memUsed
		r.mu.Unlock()
		return cleanup(fmt.Errorf("%w: %w: %d bytes requested, %d of %d in use",
			ErrLoadFailure, ErrAllocationFailure, mem, used, r.maxMemory))
	}
	idx := -1
	for i := range r.slots {
		if r.slots[i].model == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return cleanup(ErrNoFreeSlot)
	}
	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	m.loadedAt = time.Now()
	m.metrics.MemoryUsage = mem
	m.metrics.LoadTime = time.Since(start)
	s.model = m
	r.memUsed += mem
	h := Handle{Index: uint32(idx), Gen: s.gen}
	r.mu.Unlock()

	r.log.Info("model loaded",
		"model", name,
		"handle", h.String(),
		"vocab_size", in.Model.VocabSize,
		"memory_bytes", mem,
		"mapped", in.Weights.Mapped(),
		"load_time", m.metrics.LoadTime,
	)
	return h, nil
}

// Unload removes a model and releases its buffers.
func (r *Registry) Unload(h Handle) error {
	if r == nil {
		return ErrNotInitialized
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	s, err := r.slotLocked(h)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	m := s.model
	s.model = nil
	s.gen++
	r.memUsed -= m.metrics.MemoryUsage
	r.mu.Unlock()

	r.log.Info("model unloaded", "model", m.name, "handle", h.String())
	return m.close()
}

// Shutdown unloads every model. Later calls on the registry return
// ErrNotInitialized.
func (r *Registry) Shutdown() error {
	if r == nil {
		return ErrNotInitialized
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	var models []*loadedModel
	for i := range r.slots {
		if m := r.slots[i].model; m != nil {
			models = append(models, m)
			r.slots[i].model = nil
			r.slots[i].gen++
		}
	}
	r.memUsed = 0
	r.mu.Unlock()

	var errs []error
	for _, m := range models {
		errs = append(errs, m.close())
	}
	r.log.Info("registry shut down", "models_unloaded", len(models))
	return errors.Join(errs...)
}

func (r *Registry) slotLocked(h Handle) (*slot, error) {
	if int(h.Index) >= len(r.slots) {
		return nil, fmt.Errorf("%w: handle %s", ErrModelNotFound, h)
	}
	s := &r.slots[h.Index]
	if s.model == nil || s.gen != h.Gen {
		return nil, fmt.Errorf("%w: handle %s", ErrModelNotFound, h)
	}
	return s, nil
}

func (r *Registry) lookup(h Handle) (*loadedModel, error) {
	if r == nil {
		return nil, ErrNotInitialized
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrNotInitialized
	}
	s, err := r.slotLocked(h)
	if err != nil {
		return nil, err
	}
	return s.model, nil
}

// Info returns a snapshot of a loaded model.
func (r *Registry) Info(h Handle) (ModelInfo, error) {
	m, err := r.lookup(h)
	if err != nil {
		return ModelInfo{}, err
	}
	return m.info(h), nil
}

func (m *loadedModel) info(h Handle) ModelInfo {
	m.mu.Lock()
	metrics := m.metrics
	m.mu.Unlock()
	return ModelInfo{
		Handle:     h,
		Name:       m.name,
		Type:       m.cfg.Type,
		VocabSize:  m.cfg.VocabSize,
		Config:     m.cfg,
		Tokenizer:  m.tokCfg,
		Generation: m.gen,
		LoadedAt:   m.loadedAt,
		Metrics:    metrics,
	}
}

// List returns snapshots of every loaded model in slot order.
func (r *Registry) List() []ModelInfo {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ModelInfo
	for i, s := range r.slots {
		if s.model != nil {
			out = append(out, s.model.info(Handle{Index: uint32(i), Gen: s.gen}))
		}
	}
	return out
}

// Find returns the handle of the first loaded model called name.
func (r *Registry) Find(name string) (Handle, error) {
	if r == nil {
		return Handle{}, ErrNotInitialized
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Handle{}, ErrNotInitialized
	}
	for i, s := range r.slots {
		if s.model != nil && s.model.name == name {
			return Handle{Index: uint32(i), Gen: s.gen}, nil
		}
	}
	return Handle{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

// Tokenize encodes text with a model's tokenizer into at most capacity ids.
// Text beyond capacity is dropped silently.
func (r *Registry) Tokenize(h Handle, text string, capacity int) ([]int, error) {
	m, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, invalidArgument("capacity %d must be positive", capacity)
	}
	return m.tok.Encode(text, capacity)
}

// Detokenize renders ids with a model's tokenizer. See tokenizer.Decode for
// the lossy mapping.
func (r *Registry) Detokenize(h Handle, ids []int, maxBytes int) (string, error) {
	m, err := r.lookup(h)
	if err != nil {
		return "", err
	}
	return m.tok.Decode(ids, maxBytes), nil
}

// Generate runs one generation call against a loaded model.
func (r *Registry) Generate(ctx context.Context, h Handle, prompt string, req Request) (*Result, error) {
	return r.GenerateStream(ctx, h, prompt, req, nil)
}

// GenerateStream is Generate with per-token streaming.
func (r *Registry) GenerateStream(ctx context.Context, h Handle, prompt string, req Request, stream StreamFunc) (*Result, error) {
	if ctx == nil {
		return nil, invalidArgument("context is required")
	}
	m, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := r.log.With("request_id", requestID, "model", m.name)

	ids, err := safeEncode(m.tok, prompt, req.Capacity)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}

	seed := req.seed()
	scorer := m.scorer
	if scorer == nil {
		scorer = NewHeuristicScorer(m.tok.VocabSize(), scorerSeed(seed))
	}
	gen := &Generator{
		Scorer:     scorer,
		Sampler:    logits.NewSampler(req.Policy, seed),
		VocabSize:  m.tok.VocabSize(),
		StopTokens: BuildStopTokens(0, 0, slices.Concat(m.stopTokens, req.StopTokens)...),
		MaxLength:  req.MaxLength,
		MinLength:  req.MinLength,
		Capacity:   req.Capacity,
	}

	var onToken func(int)
	if stream != nil {
		onToken = func(id int) {
			if s := m.tok.Decode([]int{id}, 0); s != "" {
				stream(s)
			}
		}
	}

	out, reason, stats, err := gen.RunWithContext(ctx, ids, onToken)
	if err != nil {
		log.Warn("generation failed", "error", err)
		return nil, err
	}
	text := m.tok.Decode(out, req.MaxOutputBytes)

	m.mu.Lock()
	m.metrics.Generations++
	m.metrics.TokensGenerated += stats.TokensGenerated
	m.metrics.LastInferenceTime = stats.Duration
	m.mu.Unlock()

	log.Debug("generation finished",
		"prompt_tokens", stats.PromptTokens,
		"tokens", stats.TokensGenerated,
		"stop_reason", string(reason),
		"duration", stats.Duration,
		"tps", stats.TPS,
	)
	return &Result{
		RequestID:  requestID,
		Text:       text,
		Prompt:     ids,
		Tokens:     out,
		StopReason: reason,
		Stats:      stats,
	}, nil
}

// DefaultRequest resolves opts over a loaded model's generation defaults.
func (r *Registry) DefaultRequest(h Handle, opts RequestOptions) (Request, error) {
	m, err := r.lookup(h)
	if err != nil {
		return Request{}, err
	}
	return ResolveRequest(opts, m.gen), nil
}
