package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type StreamMode string

const (
	StreamInstant StreamMode = "instant"
	StreamSmooth  StreamMode = "smooth"
	StreamQuiet   StreamMode = "quiet"
)

func parseStreamMode(s string) (StreamMode, error) {
	switch m := StreamMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return StreamInstant, nil
	case StreamInstant, StreamSmooth, StreamQuiet:
		return m, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q (want instant, smooth or quiet)", s)
	}
}

// StreamWriter prints decoded pieces as they are generated. Pieces are joined
// by single spaces, matching the detokenizer's output.
type StreamWriter struct {
	mode   StreamMode
	buffer *bufio.Writer

	mu            sync.Mutex
	text          strings.Builder
	pending       int
	lastFlush     time.Time
	flushInterval time.Duration
	batchSize     int

	stop chan struct{}
	done chan struct{}
}

func NewStreamWriter(w io.Writer, mode StreamMode) *StreamWriter {
	s := &StreamWriter{
		mode:          mode,
		buffer:        bufio.NewWriterSize(w, 4096),
		flushInterval: 50 * time.Millisecond,
		batchSize:     5,
		lastFlush:     time.Now(),
	}
	if mode == StreamSmooth {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.backgroundFlusher()
	}
	return s
}

// Write handles one decoded piece.
func (s *StreamWriter) Write(piece string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk := piece
	if s.text.Len() > 0 {
		chunk = " " + piece
	}
	s.text.WriteString(chunk)

	switch s.mode {
	case StreamQuiet:
		return
	case StreamSmooth:
		_, _ = s.buffer.WriteString(chunk)
		s.pending++
		if s.pending >= s.batchSize || time.Since(s.lastFlush) >= s.flushInterval {
			s.flushLocked()
		}
	default:
		_, _ = s.buffer.WriteString(chunk)
		s.flushLocked()
	}
}

// Flush writes everything still buffered, stops the background flusher and
// returns the full streamed text. In quiet mode this is the first output.
func (s *StreamWriter) Flush() string {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == StreamQuiet {
		_, _ = s.buffer.WriteString(s.text.String())
	}
	s.flushLocked()
	return s.text.String()
}

func (s *StreamWriter) flushLocked() {
	_ = s.buffer.Flush()
	s.pending = 0
	s.lastFlush = time.Now()
}

func (s *StreamWriter) backgroundFlusher() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.pending > 0 && time.Since(s.lastFlush) >= s.flushInterval {
				s.flushLocked()
			}
			s.mu.Unlock()
		}
	}
}
