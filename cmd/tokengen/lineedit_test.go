package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func feedString(e *lineEditor, s string) editResult {
	res := editContinue
	for i := 0; i < len(s); i++ {
		res = e.feed(s[i])
	}
	return res
}

func TestLineEditorEditing(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		cursor int
	}{
		{"insert", "hello", "hello", 5},
		{"home then insert", "hello\x01X", "Xhello", 1},
		{"end", "hello\x01\x05!", "hello!", 6},
		{"arrow left", "abc\x1b[D\x1b[DZ", "aZbc", 2},
		{"arrow right past end", "ab\x1b[C\x1b[C", "ab", 2},
		{"ctrl-b ctrl-f", "abc\x02\x02\x06Z", "abZc", 3},
		{"backspace", "abc\x7f", "ab", 2},
		{"backspace at start", "abc\x01\x7f", "abc", 0},
		{"delete key", "abc\x01\x1b[3~", "bc", 0},
		{"ctrl-d deletes forward", "abc\x01\x04", "bc", 0},
		{"alt-b", "foo bar\x1bbX", "foo Xbar", 5},
		{"alt-f", "foo bar\x01\x1bfX", "fooX bar", 4},
		{"ctrl-left", "foo bar\x1b[1;5DX", "foo Xbar", 5},
		{"ctrl-w", "foo bar\x17", "foo ", 4},
		{"alt-backspace", "foo bar  \x1b\x7f", "foo ", 4},
		{"alt-d", "foo bar\x01\x1bd", " bar", 0},
		{"ctrl-k", "hello world\x01\x1bf\x0b", "hello", 5},
		{"ctrl-u", "hello world\x1b[D\x1b[D\x1b[D\x1b[D\x1b[D\x1b[D\x15", " world", 0},
		{"home key", "abc\x1b[HZ", "Zabc", 1},
		{"end key", "abc\x01\x1b[4~Z", "abcZ", 4},
		{"control bytes ignored", "a\x07b", "ab", 2},
		{"unknown escape", "a\x1bzb", "ab", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e lineEditor
			e.reset()
			feedString(&e, tt.input)
			if got := e.String(); got != tt.want {
				t.Fatalf("line = %q, want %q", got, tt.want)
			}
			if e.cursor != tt.cursor {
				t.Fatalf("cursor = %d, want %d", e.cursor, tt.cursor)
			}
		})
	}
}

func TestLineEditorUTF8(t *testing.T) {
	var e lineEditor
	e.reset()

	in := "héllo"
	if res := e.feed(in[0]); res != editRedraw {
		t.Fatalf("ascii byte result = %v", res)
	}
	if res := e.feed(in[1]); res != editContinue {
		t.Fatalf("partial rune result = %v, want continue", res)
	}
	feedString(&e, in[2:])
	if e.String() != "héllo" {
		t.Fatalf("line = %q", e.String())
	}
	if e.cursor != 5 {
		t.Fatalf("cursor = %d, want 5 runes", e.cursor)
	}

	feedString(&e, "\x1b[D\x1b[D\x1b[D\x1b[D")
	if e.beforeCursor() != "h" {
		t.Fatalf("beforeCursor = %q", e.beforeCursor())
	}
	e.feed(0x7f)
	if e.String() != "éllo" {
		t.Fatalf("backspace over ascii: %q", e.String())
	}
}

func TestLineEditorResults(t *testing.T) {
	var e lineEditor
	e.reset()

	if res := e.feed('\r'); res != editDone {
		t.Fatalf("enter = %v", res)
	}
	if res := e.feed(3); res != editInterrupt {
		t.Fatalf("ctrl-c = %v", res)
	}
	if res := e.feed(4); res != editEOF {
		t.Fatalf("ctrl-d on empty line = %v", res)
	}
	e.feed('x')
	if res := e.feed(4); res == editEOF {
		t.Fatalf("ctrl-d on non-empty line must not end input")
	}
	if res := e.feed(0x01); res != editRedraw {
		t.Fatalf("cursor move = %v", res)
	}
	if res := e.feed(0x01); res != editContinue {
		t.Fatalf("no-op move = %v", res)
	}
}

func TestLineEditorHistory(t *testing.T) {
	var e lineEditor
	for _, line := range []string{"one", "two", "two", "   "} {
		e.reset()
		feedString(&e, line)
		if got := e.commit(); got != line {
			t.Fatalf("commit = %q, want %q", got, line)
		}
	}
	if len(e.history) != 2 {
		t.Fatalf("history = %q, want duplicates and blanks dropped", e.history)
	}

	e.reset()
	feedString(&e, "dr")
	if res := feedString(&e, "\x1b[B"); res != editContinue {
		t.Fatalf("down without browsing = %v", res)
	}

	steps := []struct {
		seq  string
		want string
	}{
		{"\x1b[A", "two"},
		{"\x1b[A", "one"},
		{"\x1b[A", "one"},
		{"\x1b[B", "two"},
		{"\x1b[B", "dr"},
	}
	for i, st := range steps {
		feedString(&e, st.seq)
		if e.String() != st.want {
			t.Fatalf("step %d: line = %q, want %q", i, e.String(), st.want)
		}
		if e.cursor != len([]rune(st.want)) {
			t.Fatalf("step %d: cursor = %d", i, e.cursor)
		}
	}

	// reset keeps history but clears the line.
	e.reset()
	if e.String() != "" || len(e.history) != 2 {
		t.Fatalf("reset: line %q history %q", e.String(), e.history)
	}
	feedString(&e, "\x1b[A")
	if e.String() != "two" {
		t.Fatalf("history after reset = %q", e.String())
	}
}

func TestReadPlainLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("first\r\nsecond\nlast"))
	for _, want := range []string{"first", "second", "last"} {
		got, err := readPlainLine(r)
		if err != nil {
			t.Fatalf("readPlainLine error: %v", err)
		}
		if got != want {
			t.Fatalf("readPlainLine = %q, want %q", got, want)
		}
	}
	if _, err := readPlainLine(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
}
