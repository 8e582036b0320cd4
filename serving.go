// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prnake/friendli-client/auth"
)

// executor holds everything one call needs. It carries no per-call state, so
// the blocking and non-blocking executors share it.
type executor struct {
	target    Target
	base      *url.URL
	client    *http.Client
	auth      auth.Provider
	logger    *zap.Logger
	metrics   *Metrics
	userAgent string
	requestID func() string
}

func newExecutor(target Target, opts []Option) (*executor, error) {
	o := &options{
		auth:      auth.Env{},
		userAgent: "friendli-client-go/" + Version,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.auth == nil {
		o.auth = auth.None
	}
	if o.requestID == nil {
		o.requestID = func() string { return "" }
	}

	if target.BaseURL == "" {
		target.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(target.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", target.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", target.BaseURL)
	}

	return &executor{
		target:    target,
		base:      base,
		client:    o.httpClient,
		auth:      o.auth,
		logger:    o.logger,
		metrics:   o.metrics,
		userAgent: o.userAgent,
		requestID: o.requestID,
	}, nil
}

// checkModel enforces that exactly one of endpoint id and model is present.
func checkModel(target Target, model string) error {
	if !target.Dedicated() && model == "" {
		return ErrModelRequired
	}
	if target.Dedicated() && model != "" {
		return ErrModelNotAllowed
	}
	return nil
}

func (e *executor) checkModel(model string) error { return checkModel(e.target, model) }

// do runs one call. Non-streaming responses are fully buffered before they are
// returned; streaming responses keep the connection open for the caller.
func (e *executor) do(ctx context.Context, ep Endpoint, data map[string]any, stream bool, model string) (*http.Response, error) {
	req, err := e.prepare(ctx, ep, data, model)
	if err != nil {
		return nil, err
	}
	return e.send(ep, req, stream)
}

// prepare checks the preconditions and builds the request. It is the only
// step that touches data, so it runs on the caller's goroutine.
func (e *executor) prepare(ctx context.Context, ep Endpoint, data map[string]any, model string) (*http.Request, error) {
	if err := e.checkModel(model); err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]any)
	}
	return e.buildRequest(ctx, ep, data, model)
}

// send performs the exchange and translates the outcome.
func (e *executor) send(ep Endpoint, req *http.Request, stream bool) (*http.Response, error) {
	log := e.logger.With(
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(HeaderRequestID)),
	)
	log.Debug("sending request", zap.Bool("stream", stream))

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.metrics.observe(ep, 0, time.Since(start))
		log.Debug("request failed", zap.Error(err))
		return nil, err
	}
	e.metrics.observe(ep, resp.StatusCode, time.Since(start))

	if err := checkHTTPError(resp); err != nil {
		log.Warn("serving api error", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, err
	}

	if !stream {
		if err := bufferBody(resp); err != nil {
			return nil, err
		}
	}
	log.Debug("request succeeded", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// ServingAPI is the blocking call executor.
type ServingAPI struct {
	exec *executor
}

// NewServingAPI creates a blocking executor for target.
func NewServingAPI(target Target, opts ...Option) (*ServingAPI, error) {
	exec, err := newExecutor(target, opts)
	if err != nil {
		return nil, err
	}
	return &ServingAPI{exec: exec}, nil
}

// Target returns the call target with defaults applied.
func (a *ServingAPI) Target() Target { return a.exec.target }

// Request sends one call and blocks until the response headers arrive (and,
// when stream is false, until the body is read). data gains a "model" key.
//
// The caller owns the returned body and must close it. For streams, hand the
// response to NewStream or NewAsyncStream instead.
func (a *ServingAPI) Request(ctx context.Context, ep Endpoint, data map[string]any, stream bool, model string) (*http.Response, error) {
	return a.exec.do(ctx, ep, data, stream, model)
}
