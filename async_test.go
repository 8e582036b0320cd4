// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prnake/friendli-client/auth"
)

func newTestAsyncServingAPI(t *testing.T, target Target, opts ...Option) *AsyncServingAPI {
	t.Helper()
	opts = append([]Option{
		WithAuth(auth.Static{Token: "flp_test"}),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	api, err := NewAsyncServingAPI(target, opts...)
	require.NoError(t, err)
	return api
}

func TestAsyncRequestMatchesBlocking(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"text":"ok"}]}`)
	})
	api := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL, EndpointID: "ep-1"})

	f := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"prompt": "hi"}, false, "")
	resp, err := f.Await(context.Background())
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.JSONEq(t, `{"choices":[{"index":0,"text":"ok"}]}`, string(b))
	rec := srv.last.Load()
	assert.Equal(t, "/dedicated/v1/completions", rec.Path)
	assert.Equal(t, "ep-1", rec.Body["model"])
}

func TestAsyncRequestPreconditionResolvesImmediately(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL}).
		Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, false, "")
	select {
	case <-f.Done():
	default:
		t.Fatal("precondition failure must resolve the future synchronously")
	}
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, ErrModelRequired)

	f = newTestAsyncServingAPI(t, Target{BaseURL: srv.URL, EndpointID: "ep-1"}).
		Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, false, "llama")
	_, err = f.Await(context.Background())
	assert.ErrorIs(t, err, ErrModelNotAllowed)

	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestAsyncRequestPayloadReusableAfterReturn(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	api := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL})

	data := map[string]any{"prompt": "hi"}
	f := api.Request(context.Background(), CompletionsEndpoint{}, data, false, "llama")
	assert.Equal(t, "llama", data["model"], "model is injected before Request returns")
	data["prompt"] = "changed"
	delete(data, "model")

	resp, err := f.Await(context.Background())
	require.NoError(t, err)
	resp.Body.Close()

	rec := srv.last.Load()
	assert.Equal(t, "hi", rec.Body["prompt"])
	assert.Equal(t, "llama", rec.Body["model"])
}

func TestAsyncRequestBuildErrorResolvesImmediately(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	api := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL, UseProtobuf: true})

	f := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{"bogus": 1}, false, "llama")
	select {
	case <-f.Done():
	default:
		t.Fatal("build failure must resolve the future synchronously")
	}
	_, err := f.Await(context.Background())
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestAsyncRequestAPIError(t *testing.T) {
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	api := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL})

	_, err := api.Request(context.Background(), ChatCompletionsEndpoint{}, map[string]any{}, true, "llama").
		Await(context.Background())
	require.Error(t, err)
	assert.Equal(t, EndpointNotFoundMessage, err.Error())
}

func TestFutureAwaitCanceledAbandons(t *testing.T) {
	release := make(chan struct{})
	srv := newServingServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, "late")
	})
	api := newTestAsyncServingAPI(t, Target{BaseURL: srv.URL})

	f := api.Request(context.Background(), CompletionsEndpoint{}, map[string]any{}, false, "llama")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("future never resolved")
	}
	// The late result is still observable.
	resp, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFutureAbandonClosesLateBody(t *testing.T) {
	f := newFuture()
	f.abandon()

	tb := &trackingBody{r: strings.NewReader("")}
	f.resolve(&http.Response{Body: tb}, nil)

	assert.Eventually(t, func() bool { return tb.closed.Load() }, time.Second, 5*time.Millisecond)
}

func TestPendingConvertsOnce(t *testing.T) {
	f := newFuture()
	calls := 0
	p := newPending(f, func(resp *http.Response) (int, error) {
		calls++
		return resp.StatusCode, nil
	})

	go f.resolve(&http.Response{StatusCode: http.StatusAccepted}, nil)

	got, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, got)
	assert.Equal(t, 1, calls)
}

func TestFailedPending(t *testing.T) {
	boom := errors.New("bad payload")
	p := failedPending[*Completion](boom)

	select {
	case <-p.Done():
	default:
		t.Fatal("failed pending must be resolved")
	}
	got, err := p.Await(context.Background())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}
