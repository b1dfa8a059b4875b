package inference

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samcharles93/tokengen/internal/blob"
	"github.com/samcharles93/tokengen/internal/modelcfg"
)

// Loader resolves model files on disk into a registry slot. Empty config
// paths fall back to the documented defaults; an empty tokenizer data path
// loads an empty buffer. The model is named by Name, else by the name in the
// model config file, else by the weights file name without its extension.
type Loader struct {
	Name                 string
	ConfigPath           string
	TokenizerConfigPath  string
	GenerationConfigPath string
	TokenizerDataPath    string
	Scorer               Scorer
}

type LoadResult struct {
	Handle     Handle
	Model      modelcfg.Model
	Tokenizer  modelcfg.Tokenizer
	Generation modelcfg.Generation
}

func (l Loader) Load(r *Registry, weightsPath string) (*LoadResult, error) {
	if strings.TrimSpace(weightsPath) == "" {
		return nil, invalidArgument("weights path is required")
	}
	if r == nil {
		return nil, ErrNotInitialized
	}

	modelCfg, err := modelcfg.ReadFile(l.ConfigPath, modelcfg.ParseModel)
	if err != nil {
		return nil, loadFailure("model config", err)
	}
	tokCfg, err := modelcfg.ReadFile(l.TokenizerConfigPath, modelcfg.ParseTokenizer)
	if err != nil {
		return nil, loadFailure("tokenizer config", err)
	}
	genCfg, err := modelcfg.ReadFile(l.GenerationConfigPath, modelcfg.ParseGeneration)
	if err != nil {
		return nil, loadFailure("generation config", err)
	}

	weights, err := blob.Open(weightsPath)
	if err != nil {
		return nil, loadFailure("open weights", err)
	}
	cleanup := func(err error) (*LoadResult, error) {
		_ = weights.Close()
		return nil, err
	}

	tokData := blob.FromBytes(nil)
	if l.TokenizerDataPath != "" {
		tokData, err = blob.Open(l.TokenizerDataPath)
		if err != nil {
			return cleanup(loadFailure("open tokenizer data", err))
		}
	}

	// Without a config file modelCfg.Name is only the built-in default.
	name := l.Name
	if name == "" && l.ConfigPath != "" {
		name = modelCfg.Name
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(weightsPath), filepath.Ext(weightsPath))
	}

	// Load owns both blobs from here on.
	h, err := r.Load(LoadInput{
		Name:          name,
		Model:         modelCfg,
		Tokenizer:     tokCfg,
		Generation:    genCfg,
		Weights:       weights,
		TokenizerData: tokData,
		Scorer:        l.Scorer,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", weightsPath, err)
	}
	return &LoadResult{
		Handle:     h,
		Model:      modelCfg,
		Tokenizer:  tokCfg,
		Generation: genCfg,
	}, nil
}
