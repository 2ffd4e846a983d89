package capture

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamUnderCap(t *testing.T) {
	s := NewStream(64, 8, 16)
	_, _ = s.Write([]byte("hello "))
	_, _ = s.Write([]byte("world"))

	r := s.Result()
	assert.Equal(t, Streaming, r.Mode)
	assert.Equal(t, "hello world", string(r.Body))
	assert.False(t, r.Truncated)
}

func TestStreamTruncatesOnce(t *testing.T) {
	s := NewStream(10, 8, 16)
	_, _ = s.Write([]byte("0123456"))
	_, _ = s.Write([]byte("789abc"))
	_, _ = s.Write([]byte("more"))

	r := s.Result()
	assert.True(t, r.Truncated)
	assert.Equal(t, "0123456789"+TruncationMarker, string(r.Body))
}

func TestStreamExactlyAtCap(t *testing.T) {
	s := NewStream(4, 2, 4)
	_, _ = s.Write([]byte("abcd"))
	assert.False(t, s.Result().Truncated)

	_, _ = s.Write([]byte("e"))
	assert.Equal(t, "abcd"+TruncationMarker, string(s.Result().Body))
}

func TestStreamMegabyteBound(t *testing.T) {
	s := NewStream(DefaultMaxBytes, DefaultTailKeep, DefaultTailMax)
	chunk := bytes.Repeat([]byte("x"), DefaultChunkBytes)
	for i := 0; i < 40; i++ {
		_, _ = s.Write(chunk)
	}

	r := s.Result()
	assert.True(t, r.Truncated)
	assert.Len(t, r.Body, DefaultMaxBytes+len(TruncationMarker))
	assert.True(t, strings.HasSuffix(string(r.Body), TruncationMarker))
	assert.LessOrEqual(t, len(r.Tail), DefaultTailMax)
}

func TestStreamTailWindow(t *testing.T) {
	s := NewStream(1024, 4, 8)
	_, _ = s.Write([]byte("abcdef"))
	assert.Equal(t, "abcdef", string(s.Result().Tail))

	_, _ = s.Write([]byte("ghi"))
	assert.Equal(t, "fghi", string(s.Result().Tail))

	_, _ = s.Write([]byte("0123456789"))
	assert.Equal(t, "6789", string(s.Result().Tail))
}

func TestTeeWriterFlushesAndCaptures(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewStream(1024, 64, 128)
	tee := NewTeeWriter(rec, s)

	n, err := Pump(tee, iotest.OneByteReader(strings.NewReader("data: {}\n\n")), 4)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: {}\n\n", rec.Body.String())
	assert.Equal(t, "data: {}\n\n", string(s.Result().Body))
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("broken pipe")
	}
	n := min(len(p), w.after)
	w.after -= n
	return n, nil
}

func TestPumpClientWriteError(t *testing.T) {
	s := NewStream(1024, 64, 128)
	tee := NewTeeWriter(&failingWriter{after: 3}, s)

	_, err := Pump(tee, strings.NewReader("abcdef"), 2)

	var ce *CopyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "write", ce.Op)
	assert.Equal(t, "abc", string(s.Result().Body))
}

func TestPumpUpstreamReadError(t *testing.T) {
	src := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("reset")))
	var dst bytes.Buffer

	n, err := Pump(&dst, src, 0)

	var ce *CopyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "read", ce.Op)
	assert.EqualValues(t, 7, n)
	assert.Contains(t, err.Error(), "upstream read failed")
}
