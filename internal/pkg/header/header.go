// Package header decides which headers cross the proxy in each direction.
package header

import (
	"net/http"
	"strings"
)

const Authorization = "Authorization"

var (
	skipRequest = map[string]struct{}{
		"host":              {},
		"content-length":    {},
		"connection":        {},
		"upgrade":           {},
		"transfer-encoding": {},
		"authorization":     {},
	}
	skipResponse = map[string]struct{}{
		"transfer-encoding": {},
		"connection":        {},
		"upgrade":           {},
		"content-encoding":  {},
	}
)

// Outbound copies the caller headers for the upstream request and sets the
// upstream credential. Repeated values are kept.
func Outbound(src http.Header, apiKey string) http.Header {
	dst := make(http.Header, len(src)+1)
	for k, vs := range src {
		if _, skip := skipRequest[strings.ToLower(k)]; skip {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	dst.Set(Authorization, "Bearer "+apiKey)
	return dst
}

// CopyResponse copies upstream response headers onto dst. Content-Length is
// dropped when the body is re-encoded or streamed. Content-Encoding is kept
// only when the body is passed through still encoded.
func CopyResponse(dst, src http.Header, decoded, streaming bool) {
	for k, vs := range src {
		lk := strings.ToLower(k)
		if lk == "content-encoding" && !decoded {
			for _, v := range vs {
				dst.Add(k, v)
			}
			continue
		}
		if _, skip := skipResponse[lk]; skip {
			continue
		}
		if lk == "content-length" && (decoded || streaming) {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// Sanitize flattens h for storage and removes Authorization.
func Sanitize(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if strings.EqualFold(k, Authorization) {
			continue
		}
		out[k] = strings.Join(vs, ",")
	}
	return out
}

// BearerToken extracts the token from "Bearer <token>". The scheme match is
// case-insensitive.
func BearerToken(h http.Header) (string, bool) {
	v := h.Get(Authorization)
	const scheme = "bearer "
	if len(v) <= len(scheme) || !strings.EqualFold(v[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(v[len(scheme):])
	return token, token != ""
}

// ClientIP prefers the first X-Forwarded-For entry, then X-Real-IP.
func ClientIP(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remoteAddr
}
