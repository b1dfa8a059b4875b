package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
)

func infoCmd() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:  "info",
		Usage: "Load a model and print its configuration and metrics",
		Flags: append(commonModelFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &jsonOut,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := openSession(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = s.Close() }()

			info, err := s.info()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if jsonOut {
				return writeJSON(c.Root().Writer, info)
			}
			printInfo(c.Root().Writer, info, s.files)
			return nil
		},
	}
}

func printInfo(w io.Writer, info inference.ModelInfo, files modelFiles) {
	cfg := info.Config
	tok := info.Tokenizer
	gen := info.Generation

	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }
	p("model: %s (%s) handle=%s\n", info.Name, info.Type, info.Handle)
	p("weights: %s (%s)\n", files.Weights, formatSize(info.Metrics.MemoryUsage))
	p("configs: model=%s tokenizer=%s generation=%s data=%s\n",
		orDefault(files.ModelConfig), orDefault(files.TokenizerConfig),
		orDefault(files.GenerationConfig), orDefault(files.TokenizerData))
	p("layers=%d hidden=%d heads=%d ffn=%d vocab=%d ctx=%d\n",
		cfg.NumHiddenLayers, cfg.HiddenSize, cfg.NumAttentionHeads,
		cfg.IntermediateSize, cfg.VocabSize, cfg.MaxPositionEmbeddings)
	p("specials: bos=%d %q eos=%d %q pad=%d %q sep=%d %q cls=%d %q mask=%d %q unk=%d %q\n",
		cfg.BOSTokenID, tok.BOSToken, cfg.EOSTokenID, tok.EOSToken,
		cfg.PadTokenID, tok.PadToken, cfg.SEPTokenID, tok.SEPToken,
		cfg.CLSTokenID, tok.CLSToken, cfg.MaskTokenID, tok.MaskToken,
		cfg.UNKTokenID, tok.UNKToken)
	normalize := tok.Normalize
	if normalize == "" {
		normalize = "none"
	}
	p("tokenizer: max_length=%d normalize=%s\n", tok.MaxLength, normalize)
	p("generation: do_sample=%t temp=%.3g top_k=%d top_p=%.3g repetition_penalty=%.3g max_length=%d min_length=%d\n",
		gen.DoSample, gen.Temperature, gen.TopK, gen.TopP, gen.RepetitionPenalty, gen.MaxLength, gen.MinLength)
	p("metrics: load_time=%s generations=%d tokens=%d last_inference=%s\n",
		info.Metrics.LoadTime, info.Metrics.Generations, info.Metrics.TokensGenerated, info.Metrics.LastInferenceTime)
}

func orDefault(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

