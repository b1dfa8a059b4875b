package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/tokengen/internal/modelcfg"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage model configuration files and CLI defaults",
		Commands: []*cli.Command{
			configInitCmd(),
			configShowCmd(),
		},
	}
}

func configInitCmd() *cli.Command {
	var (
		dir      string
		force    bool
		writeCLI bool
	)
	return &cli.Command{
		Name:  "init",
		Usage: "Write default config.json, tokenizer_config.json and generation_config.json",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "directory to write the files to",
				Value:       ".",
				Destination: &dir,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite existing files",
				Destination: &force,
			},
			&cli.BoolFlag{
				Name:        "cli",
				Usage:       "also write a CLI defaults file to --config",
				Destination: &writeCLI,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			out := c.Root().Writer
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			files := []struct {
				name string
				v    any
			}{
				{modelConfigName, modelcfg.DefaultModel()},
				{tokenizerConfigName, modelcfg.DefaultTokenizer()},
				{generationConfigName, modelcfg.DefaultGeneration()},
			}
			for _, f := range files {
				path := filepath.Join(dir, f.name)
				if err := modelcfg.SaveFile(path, f.v, force); err != nil {
					return cli.Exit(fmt.Sprintf("error: write %s: %v", path, err), 1)
				}
				_, _ = fmt.Fprintf(out, "wrote %s\n", path)
			}

			if writeCLI {
				if cliConfigPath == "" {
					return cli.Exit("error: no CLI config path (set --config)", 1)
				}
				if err := SaveConfig(cliConfigPath, defaultCLIConfig(), force); err != nil {
					return cli.Exit(fmt.Sprintf("error: write %s: %v", cliConfigPath, err), 1)
				}
				_, _ = fmt.Fprintf(out, "wrote %s\n", cliConfigPath)
			}
			return nil
		},
	}
}

func configShowCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the CLI defaults in effect",
		Action: func(ctx context.Context, c *cli.Command) error {
			data, err := yaml.Marshal(configFromContext(ctx))
			if err != nil {
				return err
			}
			out := c.Root().Writer
			_, _ = fmt.Fprintf(out, "# %s\n", orDefault(cliConfigPath))
			_, err = out.Write(data)
			return err
		},
	}
}

// defaultCLIConfig mirrors the built-in generation defaults so the written
// file documents every knob.
func defaultCLIConfig() Config {
	gen := modelcfg.DefaultGeneration()
	temp := gen.Temperature
	topK := int64(gen.TopK)
	topP := gen.TopP
	return Config{
		Temperature: &temp,
		TopK:        &topK,
		TopP:        &topP,
		StreamMode:  string(StreamInstant),
		LogLevel:    "info",
		LogFormat:   "pretty",
	}
}
