// Package api is the editor's persistence collaborator.
//
// Every call is fire-and-forget: the request runs off the editor loop and its callback is
// later executed on the loop with a success flag and the decoded response (or the error).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Callback receives the outcome of a call. On success data is the decoded JSON body
// (map[string]any, []any, ... or nil for an empty body); on failure it is the error.
type Callback func(ok bool, data any)

type Client interface {
	Get(ctx context.Context, path string, params url.Values, cb Callback)
	Post(ctx context.Context, path string, body any, cb Callback, opts ...CallOption)
	Put(ctx context.Context, path string, body any, cb Callback)
}

// Doer sends one HTTP request. *http.Client implements it; so does HandlerDoer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher runs work off the loop and queues the returned continuation on it.
type Dispatcher interface {
	Go(work func() func())
}

// CallConfig is the resolved set of per-call options.
type CallConfig struct {
	Background bool
}

type CallOption func(*CallConfig)

// Background marks a call that must not drive the global busy indicator.
func Background() CallOption {
	return func(c *CallConfig) { c.Background = true }
}

// BackgroundIf is Background when b is true.
func BackgroundIf(b bool) CallOption {
	return func(c *CallConfig) { c.Background = c.Background || b }
}

func ResolveCallOptions(opts ...CallOption) CallConfig {
	var cfg CallConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type HTTPClient struct {
	base    string
	doer    Doer
	loop    Dispatcher
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger

	busy atomic.Int64
}

type Option func(*HTTPClient)

func WithLogger(l *zap.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxInFlight bounds the number of requests running at once.
func WithMaxInFlight(n int64) Option {
	return func(c *HTTPClient) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(n)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

func New(baseURL string, doer Doer, loop Dispatcher, opts ...Option) *HTTPClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &HTTPClient{
		base:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		doer:    doer,
		loop:    loop,
		sem:     semaphore.NewWeighted(4),
		timeout: 15 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Busy reports the number of foreground calls still in flight.
func (c *HTTPClient) Busy() int {
	return int(c.busy.Load())
}

func (c *HTTPClient) Get(ctx context.Context, path string, params url.Values, cb Callback) {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}
	c.do(ctx, http.MethodGet, path, nil, cb, CallConfig{})
}

func (c *HTTPClient) Post(ctx context.Context, path string, body any, cb Callback, opts ...CallOption) {
	c.do(ctx, http.MethodPost, path, body, cb, ResolveCallOptions(opts...))
}

func (c *HTTPClient) Put(ctx context.Context, path string, body any, cb Callback) {
	c.do(ctx, http.MethodPut, path, body, cb, CallConfig{})
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, cb Callback, cfg CallConfig) {
	if !cfg.Background {
		c.busy.Add(1)
	}
	c.loop.Go(func() func() {
		data, err := c.roundTrip(ctx, method, path, body)
		return func() {
			if !cfg.Background {
				c.busy.Add(-1)
			}
			if err != nil {
				c.logger.Warn("request failed",
					zap.String("method", method),
					zap.String("path", path),
					zap.Error(err))
				if cb != nil {
					cb(false, err)
				}
				return
			}
			c.logger.Debug("request ok", zap.String("method", method), zap.String("path", path))
			if cb != nil {
				cb(true, data)
			}
		}
	})
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, body any) (any, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+strings.TrimLeft(path, "/"), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

// HandlerDoer serves requests with an in-process handler, for local-first use without a
// listening server.
type HandlerDoer struct {
	Handler http.Handler
}

func (d HandlerDoer) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rw := &responseBuffer{header: http.Header{}}
	d.Handler.ServeHTTP(rw, req)
	return rw.response(req), nil
}

// responseBuffer collects one handler response in memory.
type responseBuffer struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) WriteHeader(code int) {
	if b.code == 0 {
		b.code = code
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *responseBuffer) response(req *http.Request) *http.Response {
	code := b.code
	if code == 0 {
		code = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        b.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(b.body.Bytes())),
		ContentLength: int64(b.body.Len()),
		Request:       req,
	}
}
