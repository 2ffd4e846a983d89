// Package capture records response bytes for the audit log while they flow
// to the caller.
package capture

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	TruncationMarker = "\n... [RESPONSE_TRUNCATED_DUE_TO_SIZE_LIMIT] ..."

	DefaultMaxBytes   = 1 << 20
	DefaultTailKeep   = 2048
	DefaultTailMax    = 4096
	DefaultChunkBytes = 32 * 1024
)

type Mode int

const (
	Buffered Mode = iota
	Streaming
)

func (m Mode) String() string {
	if m == Streaming {
		return "streaming"
	}
	return "buffered"
}

// Result is what the audit record keeps from a response. Buffered results
// carry the whole body, streaming ones a capped body plus the tail used for
// usage extraction.
type Result struct {
	Mode      Mode
	Body      []byte
	Tail      []byte
	Truncated bool
}

func FromBuffered(body []byte) Result {
	return Result{Mode: Buffered, Body: body}
}

// Stream feeds two bounded accumulators from one write: a tail window and
// a full copy capped at maxBytes.
type Stream struct {
	maxBytes  int
	tailKeep  int
	tailMax   int
	full      []byte
	tail      []byte
	truncated bool
}

func NewStream(maxBytes, tailKeep, tailMax int) *Stream {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if tailMax <= 0 {
		tailMax = DefaultTailMax
	}
	if tailKeep <= 0 || tailKeep > tailMax {
		tailKeep = min(DefaultTailKeep, tailMax)
	}
	return &Stream{maxBytes: maxBytes, tailKeep: tailKeep, tailMax: tailMax}
}

// Write never fails.
func (s *Stream) Write(p []byte) (int, error) {
	s.tail = append(s.tail, p...)
	if len(s.tail) > s.tailMax {
		kept := make([]byte, s.tailKeep)
		copy(kept, s.tail[len(s.tail)-s.tailKeep:])
		s.tail = kept
	}

	if s.truncated {
		return len(p), nil
	}
	room := s.maxBytes - len(s.full)
	if len(p) <= room {
		s.full = append(s.full, p...)
		return len(p), nil
	}
	s.full = append(s.full, p[:room]...)
	s.full = append(s.full, TruncationMarker...)
	s.truncated = true
	return len(p), nil
}

func (s *Stream) Result() Result {
	return Result{Mode: Streaming, Body: s.full, Tail: s.tail, Truncated: s.truncated}
}

// TeeWriter writes to the caller, flushes, then records what was written.
type TeeWriter struct {
	dst     io.Writer
	flusher http.Flusher
	capture io.Writer
}

func NewTeeWriter(dst io.Writer, capture io.Writer) *TeeWriter {
	f, _ := dst.(http.Flusher)
	return &TeeWriter{dst: dst, flusher: f, capture: capture}
}

func (t *TeeWriter) Write(p []byte) (int, error) {
	n, err := t.dst.Write(p)
	if n > 0 {
		if t.flusher != nil {
			t.flusher.Flush()
		}
		_, _ = t.capture.Write(p[:n])
	}
	return n, err
}

// CopyError tells apart the two sides of a failed copy.
type CopyError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *CopyError) Error() string {
	if e.Op == "write" {
		return fmt.Sprintf("client write failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream read failed: %v", e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Pump copies src into dst in chunkSize reads until EOF.
func Pump(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkBytes
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr == nil && nw < nr {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, &CopyError{Op: "write", Err: werr}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, &CopyError{Op: "read", Err: rerr}
		}
	}
}
