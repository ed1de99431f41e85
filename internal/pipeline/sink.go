package pipeline

import (
	"context"
	"io"
	"net/http"
	"sync"
)

// BufferedSink keeps every batch in memory until the run finishes.
type BufferedSink struct {
	parts [][]byte
	size  int
}

func (s *BufferedSink) WriteBatch(_ context.Context, audio [][]byte) error {
	for _, a := range audio {
		s.parts = append(s.parts, a)
		s.size += len(a)
	}
	return nil
}

// Bytes concatenates all written audio in order.
func (s *BufferedSink) Bytes() []byte {
	out := make([]byte, 0, s.size)
	for _, p := range s.parts {
		out = append(out, p...)
	}
	return out
}

// WriterSink streams each batch to an io.Writer and flushes after every batch
// when the writer supports it.
type WriterSink struct {
	w       io.Writer
	flusher http.Flusher
	// Preamble is written once ahead of the first batch, e.g. a container header.
	Preamble []byte

	mu       sync.Mutex
	started  bool
	written  int64
	abortErr error
	closed   bool
}

func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

func (s *WriterSink) WriteBatch(ctx context.Context, audio [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.started {
		s.started = true
		if len(s.Preamble) > 0 {
			if err := s.write(s.Preamble); err != nil {
				return err
			}
		}
	}
	for _, a := range audio {
		if err := s.write(a); err != nil {
			return err
		}
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *WriterSink) write(p []byte) error {
	n, err := s.w.Write(p)
	s.written += int64(n)
	return err
}

func (s *WriterSink) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortErr == nil {
		s.abortErr = err
	}
}

func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Aborted returns the error the stream was aborted with, or nil.
func (s *WriterSink) Aborted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortErr
}

func (s *WriterSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *WriterSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ StreamingSink = (*WriterSink)(nil)
