// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prnake/friendli-client/auth"
)

// servingServer records every request and answers with handler.
type servingServer struct {
	*httptest.Server
	hits atomic.Int32
	last atomic.Pointer[recordedRequest]
}

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

func newServingServer(t *testing.T, handler http.HandlerFunc) *servingServer {
	t.Helper()
	s := &servingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		rec := &recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if r.Header.Get("Content-Type") == ContentTypeJSON {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		s.last.Store(rec)
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestServingAPI(t *testing.T, target Target, opts ...Option) *ServingAPI {
	t.Helper()
	opts = append([]Option{
		WithAuth(auth.Static{Token: "flp_test"}),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	api, err := NewServingAPI(target, opts...)
	require.NoError(t, err)
	return api
}

func TestRequestPreconditions(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serverless := newTestServingAPI(t, Target{BaseURL: srv.URL})
	_, err := serverless.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"prompt": "hi"}, false, "")
	assert.ErrorIs(t, err, ErrModelRequired)
	assert.Equal(t, "`model` is required for serverless endpoints.", err.Error())

	dedicated := newTestServingAPI(t, Target{BaseURL: srv.URL, EndpointID: "ep-1"})
	_, err = dedicated.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"prompt": "hi"}, false, "llama")
	assert.ErrorIs(t, err, ErrModelNotAllowed)
	assert.Equal(t, "`model` is not allowed for dedicated endpoints.", err.Error())

	assert.Equal(t, int32(0), srv.hits.Load(), "no request may be sent on precondition failure")
}

func TestRequestServerlessAndDedicated(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentTypeJSON)
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"text":"ok"}]}`)
	})

	api := newTestServingAPI(t, Target{BaseURL: srv.URL})
	resp, err := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"prompt": "hi"}, false, "llama")
	require.NoError(t, err)
	resp.Body.Close()

	rec := srv.last.Load()
	assert.Equal(t, "/v1/completions", rec.Path)
	assert.Equal(t, "llama", rec.Body["model"])
	assert.Equal(t, "Bearer flp_test", rec.Header.Get("Authorization"))
	assert.NotEmpty(t, rec.Header.Get(HeaderRequestID))

	api = newTestServingAPI(t, Target{BaseURL: srv.URL, EndpointID: "ep-1"})
	resp, err = api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"prompt": "hi"}, false, "")
	require.NoError(t, err)
	resp.Body.Close()

	rec = srv.last.Load()
	assert.Equal(t, "/dedicated/v1/completions", rec.Path)
	assert.Equal(t, "ep-1", rec.Body["model"])
}

func TestRequestBuffersBody(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	api := newTestServingAPI(t, Target{BaseURL: srv.URL})

	resp, err := api.Request(context.Background(), CompletionsEndpoint{}, nil, false, "llama")
	require.NoError(t, err)

	// Closing the server first proves the body is already in memory.
	srv.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"choices":[]}`, string(b))
	assert.Equal(t, int64(len(b)), resp.ContentLength)
}

func TestRequestAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		stream  bool
		wantMsg string
	}{
		{"not found", http.StatusNotFound, "not found", false, EndpointNotFoundMessage},
		{"not found stream", http.StatusNotFound, `{"detail":"missing"}`, true, EndpointNotFoundMessage},
		{"server error", http.StatusInternalServerError, "internal error", false, "internal error"},
		{"server error stream", http.StatusInternalServerError, "internal error", true, "internal error"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":"bad prompt"}`, false, `{"detail":"bad prompt"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			})
			api := newTestServingAPI(t, Target{BaseURL: srv.URL})

			resp, err := api.Request(context.Background(), ChatCompletionsEndpoint{}, map[string]any{}, tt.stream, "llama")
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.wantMsg, err.Error())

			ae, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, ae.StatusCode)
			assert.NotEmpty(t, ae.RequestID)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, srv.URL+"/v1/chat/completions", se.URL)
		})
	}
}

func TestRequestTransportErrorUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	api := newTestServingAPI(t, Target{BaseURL: base})
	_, err := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, false, "llama")
	require.Error(t, err)

	var ue *url.Error
	assert.True(t, errors.As(err, &ue))
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
}

func TestRequestContextCanceled(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	api := newTestServingAPI(t, Target{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := api.Request(ctx, CompletionsEndpoint{}, map[string]any{}, false, "llama")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestMetrics(t *testing.T) {
	codes := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	var n atomic.Int32
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(codes[n.Add(1)-1])
	})

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	api := newTestServingAPI(t, Target{BaseURL: srv.URL}, WithMetrics(m))

	for range codes {
		resp, err := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, false, "llama")
		if err == nil {
			resp.Body.Close()
		}
	}

	ep := CompletionsEndpoint{}.APIPath()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(ep, "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(ep, "429")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestRequestStreamKeepsBodyOpen(t *testing.T) {
	release := make(chan struct{})
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, "data: first")
		flusher.Flush()
		<-release
		fmt.Fprintln(w, "data: second")
	})
	defer close(release)

	api := newTestServingAPI(t, Target{BaseURL: srv.URL})
	resp, err := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, true, "llama")
	require.NoError(t, err)

	s := NewStream(resp, func(line []byte) (string, error) { return string(SSEData(line)), nil })
	defer s.Close()

	first, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", first)
}
