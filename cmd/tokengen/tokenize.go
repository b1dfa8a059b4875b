package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
)

func tokenizeCmd() *cli.Command {
	var (
		text     string
		capacity int64
		jsonOut  bool
	)
	return &cli.Command{
		Name:      "tokenize",
		Aliases:   []string{"tok"},
		Usage:     "Convert text to token ids",
		ArgsUsage: "[text...]",
		Flags: append(commonModelFlags(),
			&cli.StringFlag{
				Name:        "text",
				Usage:       "text to tokenize (\"-\" reads stdin; default: the arguments)",
				Destination: &text,
			},
			&cli.Int64Flag{
				Name:        "capacity",
				Aliases:     []string{"c"},
				Usage:       "maximum number of ids",
				Value:       inference.DefaultCapacity,
				Destination: &capacity,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the ids as a JSON array",
				Destination: &jsonOut,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			input, err := readPrompt(text, c.Args().Slice(), os.Stdin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			s, err := openSession(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = s.Close() }()

			ids, err := s.reg.Tokenize(s.handle, input, int(capacity))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: tokenize: %v", err), 1)
			}
			if jsonOut {
				return writeJSON(c.Root().Writer, ids)
			}
			_, err = fmt.Fprintln(c.Root().Writer, formatIDs(ids))
			return err
		},
	}
}

func detokenizeCmd() *cli.Command {
	var maxBytes int64
	return &cli.Command{
		Name:      "detokenize",
		Aliases:   []string{"detok"},
		Usage:     "Convert token ids to text",
		ArgsUsage: "<id> [id...]",
		Flags: append(commonModelFlags(),
			&cli.Int64Flag{
				Name:        "max-bytes",
				Usage:       "truncate the text to this many bytes (0 = unbounded)",
				Destination: &maxBytes,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := parseIDs(c.Args().Slice())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(ids) == 0 {
				return cli.Exit("error: at least one token id is required", 1)
			}
			s, err := openSession(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = s.Close() }()

			out, err := s.reg.Detokenize(s.handle, ids, int(maxBytes))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: detokenize: %v", err), 1)
			}
			_, err = fmt.Fprintln(c.Root().Writer, out)
			return err
		},
	}
}

// formatIDs renders ids space separated, the form detokenize accepts.
func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}
