package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
)

func generateCmd() *cli.Command {
	var (
		prompt     string
		streamMode string
		showTokens bool
		jsonOut    bool
		sampling   samplingFlags
	)

	flags := append(commonModelFlags(),
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text (\"-\" reads stdin; default: the arguments)",
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "output mode (instant, smooth, quiet)",
			Value:       string(StreamInstant),
			Destination: &streamMode,
		},
		&cli.BoolFlag{
			Name:        "show-tokens",
			Usage:       "print prompt and generated token ids",
			Destination: &showTokens,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the result as JSON",
			Destination: &jsonOut,
		},
	)
	flags = append(flags, sampling.flags()...)

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen", "run"},
		Usage:     "Generate text from a prompt",
		ArgsUsage: "[prompt...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := configFromContext(ctx)
			applySamplingConfig(c, cfg, &sampling)
			if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
				streamMode = cfg.StreamMode
			}
			mode, err := parseStreamMode(streamMode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			text, err := readPrompt(prompt, c.Args().Slice(), os.Stdin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			opts, err := sampling.options(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			s, err := openSession(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = s.Close() }()

			req, err := s.reg.DefaultRequest(s.handle, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			out := c.Root().Writer
			if jsonOut {
				res, err := s.engine.Generate(ctx, text, req, nil)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
				}
				return writeJSON(out, res)
			}

			res, err := runGeneration(ctx, s, text, req, out, mode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
			}
			errOut := c.Root().ErrWriter
			if showTokens {
				_, _ = fmt.Fprintf(errOut, "prompt tokens (%d): %s\n", len(res.Prompt), joinInts(res.Prompt))
				_, _ = fmt.Fprintf(errOut, "output tokens (%d): %s\n", len(res.Tokens), joinInts(res.Tokens))
			}
			printStats(errOut, res)
			return nil
		},
	}
}

// runGeneration streams one generation call to out and ends the output with
// a newline.
func runGeneration(ctx context.Context, s *session, prompt string, req inference.Request, out io.Writer, mode StreamMode) (*inference.Result, error) {
	sw := NewStreamWriter(out, mode)
	res, err := s.engine.Generate(ctx, prompt, req, sw.Write)
	sw.Flush()
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintln(out)
	return res, nil
}

func printStats(w io.Writer, res *inference.Result) {
	_, _ = fmt.Fprintf(w, "stats: %.2f TPS (%d tokens in %s, stop=%s)\n",
		res.Stats.TPS, res.Stats.TokensGenerated, res.Stats.Duration, res.StopReason)
}

// readPrompt picks the prompt from the flag, stdin ("-") or the arguments.
func readPrompt(flag string, args []string, stdin io.Reader) (string, error) {
	switch {
	case flag == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(data), nil
	case flag != "":
		return flag, nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", errors.New("a prompt is required (--prompt or arguments)")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte(']')
	return b.String()
}
