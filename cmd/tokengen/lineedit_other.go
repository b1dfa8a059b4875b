//go:build !linux

package main

import (
	"fmt"
	"io"
)

func readInteractiveLine(prompt string, out io.Writer) (string, error) {
	if stdinIsTTY() {
		_, _ = fmt.Fprint(out, prompt)
	}
	return readPlainLine(stdinReader)
}
