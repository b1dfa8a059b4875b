package main

import (
	"bytes"
	"testing"
)

func TestParseStreamMode(t *testing.T) {
	tests := []struct {
		in      string
		want    StreamMode
		wantErr bool
	}{
		{"", StreamInstant, false},
		{"instant", StreamInstant, false},
		{" Smooth ", StreamSmooth, false},
		{"QUIET", StreamQuiet, false},
		{"typewriter", "", true},
	}
	for _, tt := range tests {
		got, err := parseStreamMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseStreamMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseStreamMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStreamWriterInstant(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf, StreamInstant)

	sw.Write("the")
	if buf.String() != "the" {
		t.Fatalf("first piece not written immediately: %q", buf.String())
	}
	sw.Write("cat")
	if buf.String() != "the cat" {
		t.Fatalf("pieces not space separated: %q", buf.String())
	}
	if got := sw.Flush(); got != "the cat" {
		t.Fatalf("Flush() = %q", got)
	}
	if buf.String() != "the cat" {
		t.Fatalf("Flush wrote extra output: %q", buf.String())
	}
}

func TestStreamWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf, StreamQuiet)

	sw.Write("a")
	sw.Write("b")
	if buf.Len() != 0 {
		t.Fatalf("quiet mode wrote before Flush: %q", buf.String())
	}
	if got := sw.Flush(); got != "a b" {
		t.Fatalf("Flush() = %q", got)
	}
	if buf.String() != "a b" {
		t.Fatalf("quiet output = %q", buf.String())
	}
}

func TestStreamWriterSmooth(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf, StreamSmooth)

	for _, piece := range []string{"one", "two", "three"} {
		sw.Write(piece)
	}
	if got := sw.Flush(); got != "one two three" {
		t.Fatalf("Flush() = %q", got)
	}
	if buf.String() != "one two three" {
		t.Fatalf("smooth output = %q", buf.String())
	}
	// A second flush is a no-op once the background flusher stopped.
	if got := sw.Flush(); got != "one two three" {
		t.Fatalf("second Flush() = %q", got)
	}
	if buf.String() != "one two three" {
		t.Fatalf("second Flush wrote output: %q", buf.String())
	}
}
