// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"
)

// maxLineSize bounds one streamed line.
const maxLineSize = 4 << 20

var ErrStreamClosed = errors.New("friendli: stream closed")

// LineDecoder turns one non-empty line into a record. The slice is only valid
// for the duration of the call. Returning io.EOF ends the stream.
type LineDecoder[T any] func(line []byte) (T, error)

// Stream is a forward-only, non-restartable sequence of records read from a
// line-oriented response body. Recv blocks while waiting for the next line.
//
// The stream owns the body: it is released on io.EOF, on the first error, and
// on Close.
type Stream[T any] struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	decode  LineDecoder[T]

	err       error
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewStream wraps a streaming response.
func NewStream[T any](resp *http.Response, decode LineDecoder[T]) *Stream[T] {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Stream[T]{body: resp.Body, scanner: sc, decode: decode}
}

// Recv returns the next record, or io.EOF once the body is exhausted. Errors
// are sticky.
func (s *Stream[T]) Recv() (T, error) {
	var zero T
	if s.closed.Load() {
		return zero, ErrStreamClosed
	}
	if s.err != nil {
		return zero, s.err
	}
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec, err := s.decode(line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.EOF
			}
			s.finish(err)
			return zero, err
		}
		return rec, nil
	}
	err := s.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	if s.closed.Load() {
		err = ErrStreamClosed
	}
	s.finish(err)
	return zero, err
}

// finish records the terminal error and releases the body. At io.EOF the
// remainder is drained so the connection can be reused; otherwise the body is
// closed without reading more.
func (s *Stream[T]) finish(err error) {
	s.err = err
	s.closeOnce.Do(func() {
		if err == io.EOF {
			_ = CleanlyCloseBody(s.body)
			return
		}
		_ = s.body.Close()
	})
}

// Close releases the body. It may be called from another goroutine to abort a
// blocked Recv.
func (s *Stream[T]) Close() error {
	s.closed.Store(true)
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

// All ranges over the remaining records. The body is released when the loop
// ends, including on break. A non-EOF error is yielded once as the final pair.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			rec, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

type streamItem[T any] struct {
	rec T
	err error
}

// AsyncStream delivers records through a producer goroutine. Next suspends the
// caller per item and honors its context; cancelling the context given to
// NewAsyncStream, or calling Close, closes the body promptly.
type AsyncStream[T any] struct {
	items  chan streamItem[T]
	cancel context.CancelFunc
	closed atomic.Bool
	err    error // set by the producer before items is closed
}

// NewAsyncStream starts reading resp in the background.
func NewAsyncStream[T any](ctx context.Context, resp *http.Response, decode LineDecoder[T]) *AsyncStream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &AsyncStream[T]{
		items:  make(chan streamItem[T]),
		cancel: cancel,
	}
	inner := NewStream(resp, decode)
	context.AfterFunc(ctx, func() { _ = inner.Close() })
	go s.produce(ctx, inner)
	return s
}

func (s *AsyncStream[T]) produce(ctx context.Context, inner *Stream[T]) {
	defer close(s.items)
	defer s.cancel()
	for {
		rec, err := inner.Recv()
		if ctx.Err() != nil {
			s.err = ctx.Err()
			return
		}
		if errors.Is(err, io.EOF) {
			return
		}
		select {
		case s.items <- streamItem[T]{rec: rec, err: err}:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
		if err != nil {
			s.err = err
			return
		}
	}
}

// Next returns the next record, io.EOF at the end of the stream, or the
// cancellation error of either context. A decode error is sticky, as with
// Stream.Recv.
func (s *AsyncStream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.closed.Load() {
		return zero, ErrStreamClosed
	}
	select {
	case it, ok := <-s.items:
		if !ok {
			if s.closed.Load() {
				return zero, ErrStreamClosed
			}
			if s.err != nil {
				return zero, s.err
			}
			return zero, io.EOF
		}
		return it.rec, it.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops the producer and releases the body.
func (s *AsyncStream[T]) Close() error {
	s.closed.Store(true)
	s.cancel()
	return nil
}

// SSEData strips the "data:" field name and surrounding whitespace from an
// event-stream line. Lines without the prefix are returned trimmed.
func SSEData(line []byte) []byte {
	line = bytes.TrimSpace(line)
	if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
		return bytes.TrimSpace(rest)
	}
	return line
}

var doneSentinel = []byte("[DONE]")

// JSONLineDecoder decodes "data: {...}" lines into T and ends the stream at
// "data: [DONE]".
func JSONLineDecoder[T any]() LineDecoder[T] {
	return func(line []byte) (T, error) {
		var rec T
		data := SSEData(line)
		if bytes.Equal(data, doneSentinel) {
			return rec, io.EOF
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return rec, fmt.Errorf("decode stream line: %w", err)
		}
		return rec, nil
	}
}
