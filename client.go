// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prnake/friendli-client/auth"
)

// Endpoint describes one call type of the serving API.
type Endpoint interface {
	// APIPath is relative to the base URL, e.g. "v1/completions".
	APIPath() string

	// Method is the HTTP method
	Method() string

	// ContentType is the declared request content type. It is replaced by
	// ContentTypeProtobuf when binary encoding is on.
	ContentType() string

	// Schema names the binary schema, "" when the call type has none.
	Schema() string
}

// Target selects where calls go: the serverless service when EndpointID is
// empty, otherwise the dedicated deployment EndpointID.
type Target struct {
	BaseURL     string
	EndpointID  string
	UseProtobuf bool
}

// Dedicated reports whether calls route to a dedicated deployment.
func (t Target) Dedicated() bool { return t.EndpointID != "" }

// Option configures a ServingAPI or a Client
type Option func(*options)

type options struct {
	httpClient *http.Client
	auth       auth.Provider
	logger     *zap.Logger
	metrics    *Metrics
	userAgent  string
	requestID  func() string
}

// WithHTTPClient sets the transport. The client may be shared across calls;
// pooling is its responsibility.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAuth sets the authentication header provider
func WithAuth(p auth.Provider) Option {
	return func(o *options) { o.auth = p }
}

// WithToken is shorthand for WithAuth(auth.Static{Token: token}).
func WithToken(token string) Option {
	return func(o *options) { o.auth = auth.Static{Token: token} }
}

// WithLogger sets the logger. Calls log at debug level, API errors at warn.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records per-call counters and latencies.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithRequestID overrides the X-Request-ID generator.
func WithRequestID(fn func() string) Option {
	return func(o *options) { o.requestID = fn }
}

// Client exposes the typed serving resources over the blocking executor.
type Client struct {
	api *ServingAPI

	Completions     *CompletionsService
	ChatCompletions *ChatCompletionsService
	Images          *ImagesService
}

// NewClient builds a Client for target.
func NewClient(target Target, opts ...Option) (*Client, error) {
	api, err := NewServingAPI(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		api:             api,
		Completions:     &CompletionsService{api: api},
		ChatCompletions: &ChatCompletionsService{api: api},
		Images:          &ImagesService{api: api},
	}, nil
}

// API returns the underlying executor for call types without a typed resource.
func (c *Client) API() *ServingAPI { return c.api }

// AsyncClient mirrors Client over the non-blocking executor.
type AsyncClient struct {
	api *AsyncServingAPI

	Completions     *AsyncCompletionsService
	ChatCompletions *AsyncChatCompletionsService
	Images          *AsyncImagesService
}

// NewAsyncClient builds an AsyncClient for target.
func NewAsyncClient(target Target, opts ...Option) (*AsyncClient, error) {
	api, err := NewAsyncServingAPI(target, opts...)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{
		api:             api,
		Completions:     &AsyncCompletionsService{api: api},
		ChatCompletions: &AsyncChatCompletionsService{api: api},
		Images:          &AsyncImagesService{api: api},
	}, nil
}

// API returns the underlying non-blocking executor.
func (c *AsyncClient) API() *AsyncServingAPI { return c.api }
