package header

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbound(t *testing.T) {
	src := http.Header{}
	src.Set("Host", "proxy.local")
	src.Set("Content-Length", "12")
	src.Set("Connection", "keep-alive")
	src.Set("Upgrade", "h2c")
	src.Set("Transfer-Encoding", "chunked")
	src.Set("Authorization", "Bearer pk-caller")
	src["authorization"] = []string{"Bearer lowercase"}
	src.Add("X-Custom", "a")
	src.Add("X-Custom", "b")
	src.Set("Accept-Encoding", "gzip, br")

	out := Outbound(src, "sk-real")

	assert.Equal(t, "Bearer sk-real", out.Get("Authorization"))
	assert.Len(t, out.Values("Authorization"), 1)
	assert.NotContains(t, out, "authorization")
	for _, k := range []string{"Host", "Content-Length", "Connection", "Upgrade", "Transfer-Encoding"} {
		assert.Empty(t, out.Get(k), k)
	}
	assert.Equal(t, []string{"a", "b"}, out.Values("X-Custom"))
	assert.Equal(t, "gzip, br", out.Get("Accept-Encoding"))
}

func TestCopyResponse(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "application/json")
	src.Set("Content-Length", "42")
	src.Set("Content-Encoding", "gzip")
	src.Set("Transfer-Encoding", "chunked")
	src.Set("Connection", "close")
	src.Add("Set-Cookie", "a=1")
	src.Add("Set-Cookie", "b=2")

	t.Run("decoded", func(t *testing.T) {
		dst := http.Header{}
		CopyResponse(dst, src, true, false)
		assert.Equal(t, "application/json", dst.Get("Content-Type"))
		assert.Empty(t, dst.Get("Content-Length"))
		assert.Empty(t, dst.Get("Content-Encoding"))
		assert.Empty(t, dst.Get("Transfer-Encoding"))
		assert.Empty(t, dst.Get("Connection"))
		assert.Equal(t, []string{"a=1", "b=2"}, dst.Values("Set-Cookie"))
	})

	t.Run("identity buffered keeps length", func(t *testing.T) {
		plain := src.Clone()
		plain.Del("Content-Encoding")
		dst := http.Header{}
		CopyResponse(dst, plain, false, false)
		assert.Equal(t, "42", dst.Get("Content-Length"))
	})

	t.Run("streaming drops length", func(t *testing.T) {
		plain := src.Clone()
		plain.Del("Content-Encoding")
		dst := http.Header{}
		CopyResponse(dst, plain, false, true)
		assert.Empty(t, dst.Get("Content-Length"))
	})

	t.Run("undecoded keeps encoding", func(t *testing.T) {
		dst := http.Header{}
		CopyResponse(dst, src, false, false)
		assert.Equal(t, "gzip", dst.Get("Content-Encoding"))
	})
}

func TestSanitize(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h["authorization"] = []string{"secret"}
	h.Add("Accept", "text/event-stream")
	h.Add("Accept", "application/json")

	out := Sanitize(h)

	require.Len(t, out, 1)
	assert.Equal(t, "text/event-stream,application/json", out["Accept"])
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name  string
		value string
		token string
		ok    bool
	}{
		{"missing", "", "", false},
		{"basic scheme", "Basic abc", "", false},
		{"no token", "Bearer ", "", false},
		{"valid", "Bearer pk-abc", "pk-abc", true},
		{"lowercase scheme", "bearer pk-abc", "pk-abc", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.value != "" {
				h.Set("Authorization", tc.value)
			}
			token, ok := BearerToken(h)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestClientIP(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "10.0.0.9", ClientIP(h, "10.0.0.9"))

	h.Set("X-Real-IP", "192.168.1.2")
	assert.Equal(t, "192.168.1.2", ClientIP(h, "10.0.0.9"))

	h.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(h, "10.0.0.9"))
}
