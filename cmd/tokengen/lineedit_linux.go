//go:build linux

package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var shellEditor = &lineEditor{}

// readInteractiveLine reads one line with basic readline-style editing and
// history when stdin is a terminal.
func readInteractiveLine(prompt string, out io.Writer) (string, error) {
	if !stdinIsTTY() {
		return readPlainLine(stdinReader)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &newState); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	e := shellEditor
	e.reset()
	_, _ = fmt.Fprint(out, prompt)

	var buf [64]byte
	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			switch e.feed(b) {
			case editRedraw:
				redraw(out, prompt, e)
			case editDone:
				_, _ = fmt.Fprint(out, "\r\n")
				return e.commit(), nil
			case editInterrupt:
				_, _ = fmt.Fprint(out, "^C\r\n")
				return "", nil
			case editEOF:
				_, _ = fmt.Fprint(out, "\r\n")
				return "", io.EOF
			}
		}
	}
}

func redraw(out io.Writer, prompt string, e *lineEditor) {
	_, _ = fmt.Fprintf(out, "\r%s%s\x1b[K", prompt, e.String())
	if e.cursor < len(e.line) {
		_, _ = fmt.Fprintf(out, "\r%s%s", prompt, e.beforeCursor())
	}
}
