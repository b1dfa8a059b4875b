package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/logger"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "tokengen",
		Usage: "Token-level text generation engine",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(cliConfigPath)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyLoggingConfig(cmd, cfg)
			if debug {
				logLevel = "debug"
			}
			log, err := logger.Setup(logLevel, logFormat, cmd.Root().ErrWriter)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			ctx = logger.WithContext(ctx, log)
			return withConfig(ctx, cfg), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			generateCmd(),
			tokenizeCmd(),
			detokenizeCmd(),
			shellCmd(),
			infoCmd(),
			configCmd(),
			versionCmd(),
		},
	}
}

func main() {
	app := newApp()
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
