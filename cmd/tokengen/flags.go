package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
)

var (
	weightsPath          string
	modelsPath           string
	modelName            string
	modelConfigPath      string
	tokenizerConfigPath  string
	generationConfigPath string
	tokenizerDataPath    string
	maxMemory            int64
	cliConfigPath        string
	logLevel             string
	logFormat            string
	debug                bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the model weights file",
			Destination: &weightsPath,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "directory of weights files to choose from",
			Destination: &modelsPath,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "name of the loaded model (default: config name or file name)",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "model-config",
			Usage:       "override path to config.json",
			Destination: &modelConfigPath,
		},
		&cli.StringFlag{
			Name:        "tokenizer-config",
			Usage:       "override path to tokenizer_config.json",
			Destination: &tokenizerConfigPath,
		},
		&cli.StringFlag{
			Name:        "generation-config",
			Usage:       "override path to generation_config.json",
			Destination: &generationConfigPath,
		},
		&cli.StringFlag{
			Name:        "tokenizer-data",
			Usage:       "override path to the tokenizer data file",
			Destination: &tokenizerDataPath,
		},
		&cli.Int64Flag{
			Name:        "max-memory",
			Usage:       "memory budget for loaded buffers in bytes (0 = unbounded)",
			Destination: &maxMemory,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to the CLI defaults file",
			Value:       defaultConfigPath(),
			Destination: &cliConfigPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, plain, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// samplingFlags collects the per-request generation flags. Only flags set on
// the command line or by the defaults file override the model's generation
// config.
type samplingFlags struct {
	seed              int64
	temperature       float64
	topK              int64
	topP              float64
	repetitionPenalty float64
	penaltyWindow     int64
	greedy            bool
	maxLength         int64
	minLength         int64
	capacity          int64
	maxOutputBytes    int64
	stopTokens        string

	fromConfig map[string]bool
}

func (s *samplingFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       -1,
			Destination: &s.seed,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Destination: &s.temperature,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "top-k sampling parameter (0 = disabled)",
			Destination: &s.topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "nucleus sampling parameter (0 or 1 = disabled)",
			Destination: &s.topP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Aliases:     []string{"repetition-penalty"},
			Usage:       "repetition penalty base (values <= 1 use the default 1.1)",
			Destination: &s.repetitionPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Aliases:     []string{"penalty-window"},
			Usage:       "number of recent tokens to penalize",
			Destination: &s.penaltyWindow,
		},
		&cli.BoolFlag{
			Name:        "greedy",
			Usage:       "always pick the highest scoring token",
			Destination: &s.greedy,
		},
		&cli.Int64Flag{
			Name:        "max-length",
			Aliases:     []string{"n"},
			Usage:       "maximum sequence length, prompt included",
			Destination: &s.maxLength,
		},
		&cli.Int64Flag{
			Name:        "min-length",
			Usage:       "minimum number of generated tokens before a stop token is allowed",
			Destination: &s.minLength,
		},
		&cli.Int64Flag{
			Name:        "capacity",
			Aliases:     []string{"ctx", "c"},
			Usage:       "token buffer capacity",
			Value:       inference.DefaultCapacity,
			Destination: &s.capacity,
		},
		&cli.Int64Flag{
			Name:        "max-output-bytes",
			Usage:       "truncate the decoded text to this many bytes (0 = unbounded)",
			Destination: &s.maxOutputBytes,
		},
		&cli.StringFlag{
			Name:        "stop-tokens",
			Usage:       "comma separated extra stop token ids",
			Destination: &s.stopTokens,
		},
	}
}

func (s *samplingFlags) isSet(c *cli.Command, name string) bool {
	return c.IsSet(name) || s.fromConfig[name]
}

// options converts the flags into request overrides.
func (s *samplingFlags) options(c *cli.Command) (inference.RequestOptions, error) {
	var opts inference.RequestOptions
	if s.isSet(c, "seed") {
		opts.Seed = &s.seed
	}
	if s.isSet(c, "temp") {
		opts.Temperature = &s.temperature
	}
	if s.isSet(c, "top-k") {
		opts.TopK = ptrInt(s.topK)
	}
	if s.isSet(c, "top-p") {
		opts.TopP = &s.topP
	}
	if s.isSet(c, "repeat-penalty") {
		opts.RepetitionPenalty = &s.repetitionPenalty
	}
	if s.isSet(c, "repeat-last-n") {
		opts.PenaltyWindow = ptrInt(s.penaltyWindow)
	}
	if s.greedy {
		opts.Greedy = &s.greedy
	}
	if s.isSet(c, "max-length") {
		opts.MaxLength = ptrInt(s.maxLength)
	}
	if s.isSet(c, "min-length") {
		opts.MinLength = ptrInt(s.minLength)
	}
	opts.Capacity = ptrInt(s.capacity)
	if s.isSet(c, "max-output-bytes") {
		opts.MaxOutputBytes = ptrInt(s.maxOutputBytes)
	}
	ids, err := parseIDs(strings.Split(s.stopTokens, ","))
	if err != nil {
		return opts, fmt.Errorf("--stop-tokens: %w", err)
	}
	opts.StopTokens = ids
	return opts, nil
}

func ptrInt(v int64) *int {
	i := int(v)
	return &i
}

// parseIDs parses token ids, skipping blank entries.
func parseIDs(fields []string) ([]int, error) {
	var ids []int
	for _, f := range fields {
		for _, part := range strings.FieldsFunc(f, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid token id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
