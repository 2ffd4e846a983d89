// Package payload probes OpenAI-style request and response bodies without
// decoding them into structs.
package payload

import (
	"bytes"

	"github.com/tidwall/gjson"
)

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"
)

// IsStreaming reports whether body is a JSON document with "stream": true.
func IsStreaming(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	return gjson.GetBytes(body, "stream").Type == gjson.True
}

// ModelName returns the request "model" string, or "" when absent.
func ModelName(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	r := gjson.GetBytes(body, "model")
	if r.Type != gjson.String {
		return ""
	}
	return r.String()
}

// UsageFromJSON returns the raw "usage" value of a JSON response. A null
// usage counts as absent.
func UsageFromJSON(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	return usage(gjson.ParseBytes(body))
}

// UsageFromSSE scans SSE lines in order and returns the first usage found.
// Lines that do not parse, including a frame cut at the start of the
// buffer, are skipped.
func UsageFromSSE(tail []byte) (string, bool) {
	for _, line := range bytes.Split(tail, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, []byte(sseDataPrefix)) {
			line = bytes.TrimSpace(line[len(sseDataPrefix):])
		}
		if string(line) == sseDone || !gjson.ValidBytes(line) {
			continue
		}
		if raw, ok := usage(gjson.ParseBytes(line)); ok {
			return raw, true
		}
	}
	return "", false
}

func usage(doc gjson.Result) (string, bool) {
	u := doc.Get("usage")
	if !u.Exists() || u.Type == gjson.Null {
		return "", false
	}
	return u.Raw, true
}
