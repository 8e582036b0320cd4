// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesResponse(lines ...string) (*http.Response, *trackingBody) {
	tb := &trackingBody{r: strings.NewReader(strings.Join(lines, "\n"))}
	return &http.Response{StatusCode: http.StatusOK, Body: tb}, tb
}

func dataDecoder(line []byte) (string, error) {
	return string(SSEData(line)), nil
}

func TestStreamSkipsEmptyLines(t *testing.T) {
	resp, tb := linesResponse("data: A", "", "data: B")
	s := NewStream(resp, dataDecoder)

	var got []string
	for {
		rec, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Equal(t, []string{"A", "B"}, got)
	assert.True(t, tb.closed.Load())

	_, err := s.Recv()
	assert.ErrorIs(t, err, io.EOF, "stream is not restartable")
}

func TestStreamSkipsBlankLines(t *testing.T) {
	resp, _ := linesResponse(`data: {"x":1}`, "   ", "\t\r", `data: {"x":2}`)
	s := NewStream(resp, JSONLineDecoder[map[string]int]())

	var got []int
	for rec, err := range s.All() {
		require.NoError(t, err)
		got = append(got, rec["x"])
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestStreamDecoderEOFStops(t *testing.T) {
	resp, tb := linesResponse(`data: {"text":"a"}`, `data: [DONE]`, `data: {"text":"never"}`)
	s := NewStream(resp, JSONLineDecoder[struct {
		Text string `json:"text"`
	}]())

	rec, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Text)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, tb.closed.Load())
}

func TestStreamDecodeErrorIsSticky(t *testing.T) {
	resp, tb := linesResponse("data: {not json", `data: {"x":1}`)
	s := NewStream(resp, JSONLineDecoder[map[string]int]())

	_, err := s.Recv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode stream line")
	assert.True(t, tb.closed.Load())

	_, err2 := s.Recv()
	assert.Equal(t, err, err2)
}

func TestStreamAllBreakReleases(t *testing.T) {
	resp, tb := linesResponse("data: 1", "data: 2", "data: 3")
	s := NewStream(resp, dataDecoder)

	var got []string
	for rec, err := range s.All() {
		require.NoError(t, err)
		got = append(got, rec)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, got)
	assert.True(t, tb.closed.Load())

	_, err := s.Recv()
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestStreamAllYieldsError(t *testing.T) {
	resp, _ := linesResponse("data: ok", "data: bad")
	boom := errors.New("boom")
	s := NewStream(resp, func(line []byte) (string, error) {
		if string(SSEData(line)) == "bad" {
			return "", boom
		}
		return string(SSEData(line)), nil
	})

	var errs []error
	for _, err := range s.All() {
		errs = append(errs, err)
	}
	assert.Equal(t, []error{nil, boom}, errs)
}

func TestSSEData(t *testing.T) {
	assert.Equal(t, "x", string(SSEData([]byte("data: x"))))
	assert.Equal(t, "x", string(SSEData([]byte("data:x\r"))))
	assert.Equal(t, "plain", string(SSEData([]byte(" plain "))))
}

// blockingBody blocks reads until closed.
type blockingBody struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
	buf       []byte
}

func newBlockingBody() *blockingBody {
	return &blockingBody{lines: make(chan string, 8), closed: make(chan struct{})}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if len(b.buf) == 0 {
		select {
		case l := <-b.lines:
			b.buf = []byte(l + "\n")
		case <-b.closed:
			return 0, errors.New("read on closed body")
		}
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *blockingBody) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *blockingBody) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

func TestAsyncStreamNext(t *testing.T) {
	resp, tb := linesResponse("data: A", "", "data: B")
	s := NewAsyncStream(context.Background(), resp, dataDecoder)

	ctx := context.Background()
	a, err := s.Next(ctx)
	require.NoError(t, err)
	b, err := s.Next(ctx)
	require.NoError(t, err)
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Eventually(t, func() bool { return tb.closed.Load() }, time.Second, 5*time.Millisecond)
}

func TestAsyncStreamDecodeErrorIsSticky(t *testing.T) {
	resp, tb := linesResponse("data: {bad", `data: {"x":1}`)
	s := NewAsyncStream(context.Background(), resp, JSONLineDecoder[map[string]int]())
	ctx := context.Background()

	_, err1 := s.Next(ctx)
	require.Error(t, err1)
	assert.Contains(t, err1.Error(), "decode stream line")

	_, err2 := s.Next(ctx)
	assert.Equal(t, err1, err2)
	_, err3 := s.Next(ctx)
	assert.Equal(t, err1, err3)
	assert.Eventually(t, func() bool { return tb.closed.Load() }, time.Second, 5*time.Millisecond)
}

func TestAsyncStreamNextHonorsCallerContext(t *testing.T) {
	body := newBlockingBody()
	s := NewAsyncStream(context.Background(), &http.Response{Body: body}, dataDecoder)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	body.lines <- "data: late"
	rec, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", rec)
}

func TestAsyncStreamCancelReleasesBody(t *testing.T) {
	body := newBlockingBody()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAsyncStream(ctx, &http.Response{Body: body}, dataDecoder)

	body.lines <- "data: one"
	rec, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", rec)

	cancel()
	assert.Eventually(t, body.isClosed, time.Second, 5*time.Millisecond)

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsyncStreamClose(t *testing.T) {
	body := newBlockingBody()
	s := NewAsyncStream(context.Background(), &http.Response{Body: body}, dataDecoder)

	require.NoError(t, s.Close())
	assert.Eventually(t, body.isClosed, time.Second, 5*time.Millisecond)

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
}
