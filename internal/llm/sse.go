package llm

import (
	"bufio"
	"io"
)

// sseScanner reads Server-Sent Events line by line. Completion chunks
// can exceed bufio's default token size, so the buffer is widened.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseScanner{scanner: s}
}

func (s *sseScanner) Scan() bool { return s.scanner.Scan() }

func (s *sseScanner) Text() string { return s.scanner.Text() }

func (s *sseScanner) Err() error { return s.scanner.Err() }
