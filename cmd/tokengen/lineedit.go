package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// editResult tells the terminal loop what to do after a byte was consumed.
type editResult int

const (
	editContinue editResult = iota
	editRedraw
	editDone
	editInterrupt
	editEOF
)

type escState int

const (
	escNone escState = iota
	escStart
	escCSI
)

// lineEditor is the state of the interactive input line: the text being
// edited, the cursor and the history of committed lines. It knows nothing
// about the terminal; feed consumes raw input bytes one at a time.
type lineEditor struct {
	line    []rune
	cursor  int
	history []string

	histPos  int
	browsing bool
	draft    string

	esc     escState
	csi     strings.Builder
	partial []byte
}

// reset prepares the editor for a new line. History is kept.
func (e *lineEditor) reset() {
	e.line = e.line[:0]
	e.cursor = 0
	e.histPos = len(e.history)
	e.browsing = false
	e.draft = ""
	e.esc = escNone
	e.partial = e.partial[:0]
}

func (e *lineEditor) String() string { return string(e.line) }

// beforeCursor is the text left of the cursor, used to reposition it.
func (e *lineEditor) beforeCursor() string { return string(e.line[:e.cursor]) }

// commit returns the current line and records it in the history unless it is
// blank or repeats the previous entry.
func (e *lineEditor) commit() string {
	out := e.String()
	if strings.TrimSpace(out) != "" && (len(e.history) == 0 || e.history[len(e.history)-1] != out) {
		e.history = append(e.history, out)
	}
	return out
}

func (e *lineEditor) feed(b byte) editResult {
	switch e.esc {
	case escStart:
		e.esc = escNone
		switch b {
		case '[', 'O':
			e.esc = escCSI
			e.csi.Reset()
			return editContinue
		case 'b', 'B': // Alt+b
			return e.wordLeft()
		case 'f', 'F': // Alt+f
			return e.wordRight()
		case 'd', 'D': // Alt+d
			return e.deleteWordForward()
		case 127: // Alt+Backspace
			return e.deleteWordBack()
		}
		return editContinue
	case escCSI:
		e.csi.WriteByte(b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			e.esc = escNone
			return e.handleCSI(e.csi.String())
		}
		return editContinue
	}

	if len(e.partial) > 0 || b >= utf8.RuneSelf {
		e.partial = append(e.partial, b)
		if !utf8.FullRune(e.partial) {
			return editContinue
		}
		r, _ := utf8.DecodeRune(e.partial)
		e.partial = e.partial[:0]
		return e.insert(r)
	}

	switch b {
	case 27: // ESC
		e.esc = escStart
	case '\r', '\n':
		return editDone
	case 3: // Ctrl+C
		return editInterrupt
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			return editEOF
		}
		return e.deleteForward()
	case 127, 8: // Backspace
		return e.backspace()
	case 1: // Ctrl+A
		return e.moveTo(0)
	case 5: // Ctrl+E
		return e.moveTo(len(e.line))
	case 2: // Ctrl+B
		return e.moveTo(e.cursor - 1)
	case 6: // Ctrl+F
		return e.moveTo(e.cursor + 1)
	case 11: // Ctrl+K
		return e.deleteRange(e.cursor, len(e.line))
	case 21: // Ctrl+U
		return e.deleteRange(0, e.cursor)
	case 23: // Ctrl+W
		return e.deleteWordBack()
	default:
		if b >= 32 {
			return e.insert(rune(b))
		}
	}
	return editContinue
}

func (e *lineEditor) handleCSI(seq string) editResult {
	switch seq {
	case "A":
		return e.historyUp()
	case "B":
		return e.historyDown()
	case "D":
		return e.moveTo(e.cursor - 1)
	case "C":
		return e.moveTo(e.cursor + 1)
	case "H", "1~", "7~":
		return e.moveTo(0)
	case "F", "4~", "8~":
		return e.moveTo(len(e.line))
	case "3~":
		return e.deleteForward()
	case "1;5D", "5D", "1;3D":
		return e.wordLeft()
	case "1;5C", "5C", "1;3C":
		return e.wordRight()
	case "3;5~":
		return e.deleteWordForward()
	}
	return editContinue
}

func (e *lineEditor) insert(r rune) editResult {
	e.line = append(e.line, 0)
	copy(e.line[e.cursor+1:], e.line[e.cursor:])
	e.line[e.cursor] = r
	e.cursor++
	return editRedraw
}

func (e *lineEditor) moveTo(pos int) editResult {
	pos = min(max(pos, 0), len(e.line))
	if pos == e.cursor {
		return editContinue
	}
	e.cursor = pos
	return editRedraw
}

func (e *lineEditor) deleteRange(from, to int) editResult {
	if from >= to {
		return editContinue
	}
	e.line = append(e.line[:from], e.line[to:]...)
	e.cursor = from
	return editRedraw
}

func (e *lineEditor) backspace() editResult {
	if e.cursor == 0 {
		return editContinue
	}
	return e.deleteRange(e.cursor-1, e.cursor)
}

func (e *lineEditor) deleteForward() editResult {
	if e.cursor >= len(e.line) {
		return editContinue
	}
	cursor := e.cursor
	res := e.deleteRange(cursor, cursor+1)
	e.cursor = cursor
	return res
}

func isBlank(r rune) bool { return r == ' ' || r == '\t' }

// wordStart returns the start of the word left of pos, skipping blanks first.
func (e *lineEditor) wordStart(pos int) int {
	for pos > 0 && isBlank(e.line[pos-1]) {
		pos--
	}
	for pos > 0 && !isBlank(e.line[pos-1]) {
		pos--
	}
	return pos
}

// wordEnd returns the end of the word right of pos, skipping blanks first.
func (e *lineEditor) wordEnd(pos int) int {
	for pos < len(e.line) && isBlank(e.line[pos]) {
		pos++
	}
	for pos < len(e.line) && !isBlank(e.line[pos]) {
		pos++
	}
	return pos
}

func (e *lineEditor) wordLeft() editResult  { return e.moveTo(e.wordStart(e.cursor)) }
func (e *lineEditor) wordRight() editResult { return e.moveTo(e.wordEnd(e.cursor)) }

func (e *lineEditor) deleteWordBack() editResult {
	return e.deleteRange(e.wordStart(e.cursor), e.cursor)
}

func (e *lineEditor) deleteWordForward() editResult {
	cursor := e.cursor
	res := e.deleteRange(cursor, e.wordEnd(cursor))
	e.cursor = cursor
	return res
}

func (e *lineEditor) historyUp() editResult {
	if len(e.history) == 0 {
		return editContinue
	}
	if !e.browsing {
		e.draft = e.String()
		e.browsing = true
		e.histPos = len(e.history)
	}
	if e.histPos == 0 {
		return editContinue
	}
	e.histPos--
	e.setLine(e.history[e.histPos])
	return editRedraw
}

func (e *lineEditor) historyDown() editResult {
	if !e.browsing {
		return editContinue
	}
	if e.histPos < len(e.history)-1 {
		e.histPos++
		e.setLine(e.history[e.histPos])
	} else {
		e.histPos = len(e.history)
		e.setLine(e.draft)
		e.browsing = false
	}
	return editRedraw
}

func (e *lineEditor) setLine(s string) {
	e.line = append(e.line[:0], []rune(s)...)
	e.cursor = len(e.line)
}

var stdinReader = bufio.NewReader(os.Stdin)

// readPlainLine reads one line from a non-interactive stdin. A final line
// without a newline is returned before io.EOF.
func readPlainLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return trimTrailingNewline(s), nil
		}
		return "", err
	}
	return trimTrailingNewline(s), nil
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
