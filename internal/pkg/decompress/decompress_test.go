package decompress

import (
	"bytes"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `{"choices":[],"usage":{"total_tokens":42}}`

func encode(t *testing.T, newWriter func(io.Writer) io.WriteCloser) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := newWriter(&buf)
	_, err := w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewReader(t *testing.T) {
	cases := map[string]func(io.Writer) io.WriteCloser{
		"gzip":    func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"x-gzip":  func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"deflate": func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) },
		"br":      func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"zstd": func(w io.Writer) io.WriteCloser {
			zw, _ := zstd.NewWriter(w)
			return zw
		},
	}
	for enc, newWriter := range cases {
		t.Run(enc, func(t *testing.T) {
			rc, decoded, err := NewReader(enc, bytes.NewReader(encode(t, newWriter)))
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.True(t, decoded)
			assert.Equal(t, body, string(got))
		})
	}
}

func TestNewReaderRawDeflate(t *testing.T) {
	raw := encode(t, func(w io.Writer) io.WriteCloser {
		fw, _ := flate.NewWriter(w, flate.DefaultCompression)
		return fw
	})
	rc, decoded, err := NewReader("deflate", bytes.NewReader(raw))
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, decoded)
	assert.Equal(t, body, string(got))
}

func TestNewReaderStacked(t *testing.T) {
	inner := encode(t, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, _ = bw.Write(inner)
	require.NoError(t, bw.Close())

	rc, decoded, err := NewReader("gzip, br", &buf)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, decoded)
	assert.Equal(t, body, string(got))
}

func TestNewReaderPassthrough(t *testing.T) {
	for _, enc := range []string{"", "identity", "compress", "gzip, snappy"} {
		rc, decoded, err := NewReader(enc, bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		got, _ := io.ReadAll(rc)
		assert.False(t, decoded, enc)
		assert.Equal(t, body, string(got), enc)
	}
}

func TestNewReaderCorruptGzip(t *testing.T) {
	_, _, err := NewReader("gzip", bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)
}
