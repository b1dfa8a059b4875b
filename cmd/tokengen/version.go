package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/version"
)

func versionCmd() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print version information as JSON",
				Destination: &jsonOut,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			out := cmd.Root().Writer
			if jsonOut {
				return writeJSON(out, info)
			}
			_, _ = fmt.Fprintf(out, "version:    %s\n", info.Version)
			if info.Commit != "" {
				_, _ = fmt.Fprintf(out, "commit:     %s\n", info.Commit)
			}
			if info.BuildTime != "" {
				_, _ = fmt.Fprintf(out, "build time: %s\n", info.BuildTime)
			}
			_, _ = fmt.Fprintf(out, "go:         %s\n", info.GoVersion)
			return nil
		},
	}
}
