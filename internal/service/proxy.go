package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"mme/internal/core"
	"mme/internal/pkg/decompress"
	cErr "mme/internal/pkg/error"
	"mme/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

// ErrClientGone marks a call abandoned because the caller disconnected.
var ErrClientGone = errors.New("client disconnected")

type ForwardParams struct {
	Method    string
	TargetURL string
	Header    http.Header // already passed through the outbound header policy
	Body      []byte
	Timeout   time.Duration
	// Streaming stops the timeout once headers arrive; otherwise it also
	// covers the body read.
	Streaming bool
}

// Upstream is a received upstream response. For buffered calls Body is
// fully read and Stream is nil. For streaming calls Stream must be drained
// and Close called.
type Upstream struct {
	StatusCode int
	Header     http.Header
	Decoded    bool
	Body       []byte
	Stream     io.Reader

	closeFn func() error
}

func (u *Upstream) Close() error {
	if u == nil || u.closeFn == nil {
		return nil
	}
	return u.closeFn()
}

type ProxyService struct {
	httpClient *http.Client
	trace      *telemetry.Trace
}

func NewProxyService(trace *telemetry.Trace, client *http.Client) *ProxyService {
	return &ProxyService{
		httpClient: client,
		trace:      trace,
	}
}

// TargetURL joins base, prefix, path and query.
func TargetURL(base, prefix, path, rawQuery string) string {
	target := strings.TrimRight(base, "/") + prefix + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Forward sends the request upstream under its own timeout, independent of
// the caller's. Failures come back as *cErr.Error (502 or 504) or
// ErrClientGone.
func (service *ProxyService) Forward(ctx context.Context, params ForwardParams) (_ *Upstream, returnedError error) {
	ctx, span, end := service.trace.WithSpan(ctx, string(core.SpanProxyForward))
	defer func() { end(returnedError) }()
	span.SetAttributes(
		attribute.String("http.method", params.Method),
		attribute.String("http.url", params.TargetURL),
		attribute.Bool("proxy.streaming", params.Streaming),
	)

	if params.Timeout <= 0 {
		params.Timeout = core.DefaultTimeoutSeconds * time.Second
	}
	callerCtx := ctx
	ctx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	watchdog := time.AfterFunc(params.Timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	fail := func(err error, stage string) error {
		watchdog.Stop()
		cancel()
		switch {
		case timedOut.Load():
			return cErr.GatewayTimeout(stage + " timed out after " + params.Timeout.String())
		case callerCtx.Err() != nil:
			return ErrClientGone
		default:
			return cErr.ExternalRequestError(err.Error())
		}
	}

	var body io.Reader = http.NoBody
	if len(params.Body) > 0 {
		body = bytes.NewReader(params.Body)
	}
	request, err := http.NewRequestWithContext(ctx, params.Method, params.TargetURL, body)
	if err != nil {
		watchdog.Stop()
		cancel()
		return nil, cErr.InternalServer("create upstream request failed: " + err.Error())
	}
	request.Header = params.Header

	resp, err := service.httpClient.Do(request)
	if err != nil {
		return nil, fail(err, "upstream request")
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	decoded, wasDecoded, err := decompress.NewReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fail(err, "upstream body decode")
	}

	upstream := &Upstream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Decoded:    wasDecoded,
	}

	if params.Streaming {
		watchdog.Stop()
		upstream.Stream = decoded
		upstream.closeFn = func() error {
			defer cancel()
			decoded.Close()
			return resp.Body.Close()
		}
		return upstream, nil
	}

	upstream.Body, err = io.ReadAll(decoded)
	decoded.Close()
	resp.Body.Close()
	if err != nil {
		return nil, fail(err, "upstream body read")
	}
	watchdog.Stop()
	cancel()
	return upstream, nil
}
