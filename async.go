// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"net/http"
	"sync"
)

// AsyncServingAPI is the non-blocking call executor. Request returns at once;
// the exchange runs on its own goroutine and the Future suspends the caller
// only when it is awaited.
type AsyncServingAPI struct {
	exec *executor
}

// NewAsyncServingAPI creates a non-blocking executor for target.
func NewAsyncServingAPI(target Target, opts ...Option) (*AsyncServingAPI, error) {
	exec, err := newExecutor(target, opts)
	if err != nil {
		return nil, err
	}
	return &AsyncServingAPI{exec: exec}, nil
}

// Target returns the call target with defaults applied.
func (a *AsyncServingAPI) Target() Target { return a.exec.target }

// Request schedules one call. The request is built before Request returns,
// so data may be reused afterwards. Precondition and build failures resolve
// the Future immediately without starting the exchange.
func (a *AsyncServingAPI) Request(ctx context.Context, ep Endpoint, data map[string]any, stream bool, model string) *Future {
	f := newFuture()
	req, err := a.exec.prepare(ctx, ep, data, model)
	if err != nil {
		f.resolve(nil, err)
		return f
	}
	go func() {
		f.resolve(a.exec.send(ep, req, stream))
	}()
	return f
}

// Future is the pending result of an AsyncServingAPI call.
type Future struct {
	done chan struct{}
	resp *http.Response
	err  error

	abandonOnce sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(resp *http.Response, err error) {
	f.resp, f.err = resp, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the call completes or ctx is done. A Future whose Await
// was cancelled is abandoned: a response that arrives later is closed.
func (f *Future) Await(ctx context.Context) (*http.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		f.abandon()
		return nil, ctx.Err()
	}
}

func (f *Future) abandon() {
	f.abandonOnce.Do(func() {
		go func() {
			<-f.done
			if f.resp != nil {
				f.resp.Body.Close()
			}
		}()
	})
}

// Pending is a typed Future: the response is converted once it arrives.
type Pending[T any] struct {
	future *Future
	then   func(*http.Response) (T, error)
}

func newPending[T any](f *Future, then func(*http.Response) (T, error)) *Pending[T] {
	return &Pending[T]{future: f, then: then}
}

// failedPending resolves at once with err; used when the payload cannot be
// built.
func failedPending[T any](err error) *Pending[T] {
	f := newFuture()
	f.resolve(nil, err)
	return newPending(f, func(*http.Response) (T, error) {
		var zero T
		return zero, err
	})
}

// Done is closed once the underlying response is available.
func (p *Pending[T]) Done() <-chan struct{} { return p.future.Done() }

// Await blocks until the call completes and returns the converted result.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	var zero T
	resp, err := p.future.Await(ctx)
	if err != nil {
		return zero, err
	}
	return p.then(resp)
}
