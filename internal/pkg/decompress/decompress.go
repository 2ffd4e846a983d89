// Package decompress undoes upstream Content-Encoding so the proxy can
// capture readable bodies.
package decompress

import (
	"bufio"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Supported reports whether every coding listed in encoding can be decoded.
func Supported(encoding string) bool {
	for _, enc := range codings(encoding) {
		switch enc {
		case "gzip", "x-gzip", "deflate", "br", "zstd", "identity":
		default:
			return false
		}
	}
	return true
}

// NewReader wraps r with decoders for encoding, applied in reverse order of
// listing. decoded is false when r is returned as is, either because there is
// nothing to decode or because a coding is unknown. Closing the returned
// reader does not close r.
func NewReader(encoding string, r io.Reader) (rc io.ReadCloser, decoded bool, err error) {
	list := codings(encoding)
	if len(list) == 0 || !Supported(encoding) {
		return io.NopCloser(r), false, nil
	}

	var closers []io.Closer
	cur := r
	for i := len(list) - 1; i >= 0; i-- {
		switch list[i] {
		case "gzip", "x-gzip":
			zr, err := gzip.NewReader(cur)
			if err != nil {
				closeAll(closers)
				return nil, false, err
			}
			closers = append(closers, zr)
			cur = zr
		case "deflate":
			fr, err := newDeflateReader(cur)
			if err != nil {
				closeAll(closers)
				return nil, false, err
			}
			closers = append(closers, fr)
			cur = fr
		case "br":
			cur = brotli.NewReader(cur)
		case "zstd":
			zr, err := zstd.NewReader(cur)
			if err != nil {
				closeAll(closers)
				return nil, false, err
			}
			rc := zr.IOReadCloser()
			closers = append(closers, rc)
			cur = rc
		case "identity":
			continue
		}
		decoded = true
	}
	return &chain{Reader: cur, closers: closers}, decoded, nil
}

// newDeflateReader accepts zlib-wrapped streams and, as some servers send,
// raw deflate.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err == nil && isZlibHeader(head) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(h []byte) bool {
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}

func codings(encoding string) []string {
	var out []string
	for _, part := range strings.Split(encoding, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type chain struct {
	io.Reader
	closers []io.Closer
}

func (c *chain) Close() error {
	return closeAll(c.closers)
}

func closeAll(closers []io.Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
