package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokengen/internal/inference"
)

const shellHelp = `Each line is a prompt. Commands:
  :tokens <text>  show the token ids of text
  :info           show the model summary
  :help           show this help
  :quit           leave the shell`

func shellCmd() *cli.Command {
	var (
		streamMode string
		sampling   samplingFlags
	)
	flags := append(commonModelFlags(),
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "output mode (instant, smooth, quiet)",
			Value:       string(StreamInstant),
			Destination: &streamMode,
		},
	)
	flags = append(flags, sampling.flags()...)

	return &cli.Command{
		Name:    "shell",
		Aliases: []string{"repl", "chat"},
		Usage:   "Generate interactively, one prompt per line",
		Flags:   flags,
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

			sh := &shell{
				sess:   s,
				req:    req,
				mode:   mode,
				out:    c.Root().Writer,
				errOut: c.Root().ErrWriter,
			}
			_, _ = fmt.Fprintln(sh.errOut, "Interactive mode. Type :help for commands, :quit to leave.")
			return sh.run(ctx, func() (string, error) {
				return readInteractiveLine("> ", sh.out)
			})
		},
	}
}

type shell struct {
	sess   *session
	req    inference.Request
	mode   StreamMode
	out    io.Writer
	errOut io.Writer
}

// run reads lines until :quit, end of input or context cancellation.
// Generation errors are reported and the loop continues.
func (sh *shell) run(ctx context.Context, readLine func() (string, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := sh.handle(ctx, line); quit {
			return nil
		}
	}
}

func (sh *shell) handle(ctx context.Context, line string) (quit bool) {
	if cmd, arg, ok := shellCommand(line); ok {
		switch cmd {
		case "quit", "q", "exit":
			return true
		case "help", "h":
			_, _ = fmt.Fprintln(sh.out, shellHelp)
		case "info":
			info, err := sh.sess.info()
			if err != nil {
				_, _ = fmt.Fprintln(sh.errOut, "error:", err)
				return false
			}
			printInfo(sh.out, info, sh.sess.files)
		case "tokens", "tok":
			ids, err := sh.sess.reg.Tokenize(sh.sess.handle, arg, sh.req.Capacity)
			if err != nil {
				_, _ = fmt.Fprintln(sh.errOut, "error:", err)
				return false
			}
			_, _ = fmt.Fprintf(sh.out, "%s (%d tokens)\n", formatIDs(ids), len(ids))
		default:
			_, _ = fmt.Fprintf(sh.errOut, "unknown command :%s (try :help)\n", cmd)
		}
		return false
	}

	res, err := runGeneration(ctx, sh.sess, line, sh.req, sh.out, sh.mode)
	if err != nil {
		_, _ = fmt.Fprintln(sh.errOut, "error: generation:", err)
		return false
	}
	printStats(sh.errOut, res)
	return false
}

// shellCommand splits ":name rest" lines.
func shellCommand(line string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(line, ":") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}
