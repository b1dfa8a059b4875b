package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
	"github.com/samcharles93/tokengen/internal/logger"
)

// session is one model loaded into a single-slot registry for the lifetime
// of a command.
type session struct {
	reg    *inference.Registry
	handle inference.Handle
	engine inference.Engine
	files  modelFiles
	log    logger.Logger
}

func openSession(ctx context.Context, c *cli.Command) (*session, error) {
	log := logger.FromContext(ctx)
	applyModelConfig(c, configFromContext(ctx))

	weights, err := resolveWeightsPath(weightsPath, modelsPath, os.Stdin, c.Root().ErrWriter)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}
	files := resolveCompanions(modelFiles{
		Weights:          weights,
		ModelConfig:      modelConfigPath,
		TokenizerConfig:  tokenizerConfigPath,
		GenerationConfig: generationConfigPath,
		TokenizerData:    tokenizerDataPath,
	})
	log.Debug("resolved model files",
		"weights", files.Weights,
		"config", files.ModelConfig,
		"tokenizer_config", files.TokenizerConfig,
		"generation_config", files.GenerationConfig,
		"tokenizer_data", files.TokenizerData,
	)

	reg := inference.NewRegistry(inference.Options{
		MaxSlots:  1,
		MaxMemory: maxMemory,
		Logger:    log,
	})
	loader := inference.Loader{
		Name:                 modelName,
		ConfigPath:           files.ModelConfig,
		TokenizerConfigPath:  files.TokenizerConfig,
		GenerationConfigPath: files.GenerationConfig,
		TokenizerDataPath:    files.TokenizerData,
	}
	res, err := loader.Load(reg, files.Weights)
	if err != nil {
		_ = reg.Shutdown()
		return nil, err
	}
	return newSession(reg, res.Handle, files, log)
}

func newSession(reg *inference.Registry, h inference.Handle, files modelFiles, log logger.Logger) (*session, error) {
	engine, err := reg.Engine(h)
	if err != nil {
		_ = reg.Shutdown()
		return nil, err
	}
	return &session{reg: reg, handle: h, engine: engine, files: files, log: log}, nil
}

// Close unloads the model and shuts the registry down.
func (s *session) Close() error {
	return errors.Join(s.engine.Close(), s.reg.Shutdown())
}

func (s *session) info() (inference.ModelInfo, error) {
	return s.reg.Info(s.handle)
}
