package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const envModelsDir = "TOKENGEN_MODELS_DIR"

// weightsExts are the file extensions treated as model weights when
// scanning a models directory.
var weightsExts = []string{".bin", ".weights"}

// Companion files looked up next to the weights file.
const (
	modelConfigName      = "config.json"
	tokenizerConfigName  = "tokenizer_config.json"
	generationConfigName = "generation_config.json"
	tokenizerDataName    = "tokenizer.json"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

func resolveWeightsPath(modelFlag, modelsDir string, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		return filepath.Clean(modelFlag), nil
	}

	modelsDir = strings.TrimSpace(modelsDir)
	if modelsDir == "" {
		modelsDir = strings.TrimSpace(os.Getenv(envModelsDir))
	}
	if modelsDir == "" {
		return "", fmt.Errorf("--model or --models-path is required unless %s is set", envModelsDir)
	}

	models, err := discoverWeights(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("no weights files (%s) found in %s", strings.Join(weightsExts, ", "), modelsDir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "using model %s\n", models[0])
		return models[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple models found in %s but stdin is not interactive; set --model",
				modelsDir,
			)
		}
		return selectModelInteractively(modelsDir, models, stdin, stderr)
	}
}

func discoverWeights(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !slices.Contains(weightsExts, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		models = append(models, filepath.Join(dir, name))
	}
	slices.Sort(models)
	return models, nil
}

func selectModelInteractively(modelsDir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "select a model from %s\n", modelsDir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(modelsDir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return models[idx-1], nil
	}
}

func modelDisplayName(modelsDir, modelPath string) string {
	rel, err := filepath.Rel(modelsDir, modelPath)
	if err != nil || rel == "." {
		return filepath.Base(modelPath)
	}
	return rel
}

// modelFiles are the paths handed to the loader.
type modelFiles struct {
	Weights          string
	ModelConfig      string
	TokenizerConfig  string
	GenerationConfig string
	TokenizerData    string
}

// resolveCompanions fills every override left empty with the matching file
// next to the weights, when one exists. Missing companions stay empty and the
// loader falls back to defaults.
func resolveCompanions(files modelFiles) modelFiles {
	dir := filepath.Dir(files.Weights)
	pick := func(override, name string) string {
		if override = strings.TrimSpace(override); override != "" {
			return override
		}
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
		return ""
	}
	files.ModelConfig = pick(files.ModelConfig, modelConfigName)
	files.TokenizerConfig = pick(files.TokenizerConfig, tokenizerConfigName)
	files.GenerationConfig = pick(files.GenerationConfig, generationConfigName)
	files.TokenizerData = pick(files.TokenizerData, tokenizerDataName)
	return files
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
