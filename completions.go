// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"net/http"

	"github.com/prnake/friendli-client/schema"
)

// CompletionsEndpoint is POST v1/completions.
type CompletionsEndpoint struct{}

func (CompletionsEndpoint) APIPath() string     { return "v1/completions" }
func (CompletionsEndpoint) Method() string      { return http.MethodPost }
func (CompletionsEndpoint) ContentType() string { return ContentTypeJSON }
func (CompletionsEndpoint) Schema() string      { return schema.Completions }

// CompletionsRequest is the body of a text completion call. Either Prompt or
// Tokens must be set.
type CompletionsRequest struct {
	Prompt            string   `json:"prompt,omitempty"`
	Tokens            []int32  `json:"tokens,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	MaxTotalTokens    int      `json:"max_total_tokens,omitempty"`
	MinTokens         int      `json:"min_tokens,omitempty"`
	N                 int      `json:"n,omitempty"`
	NumBeams          int      `json:"num_beams,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	Seed              []uint64 `json:"seed,omitempty"`
	TimeoutMicros     int      `json:"timeout_microseconds,omitempty"`
}

// CompletionChoice is one generated sequence.
type CompletionChoice struct {
	Index  int     `json:"index"`
	Seed   uint64  `json:"seed"`
	Text   string  `json:"text"`
	Tokens []int32 `json:"tokens"`
}

// Completion is the buffered completions response.
type Completion struct {
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// CompletionEvent is one streamed completions line: a "token_sampled" event
// per token, then a "complete" event carrying the final choices.
type CompletionEvent struct {
	Event   string             `json:"event"`
	Index   int                `json:"index"`
	Text    string             `json:"text"`
	Token   int32              `json:"token"`
	Choices []CompletionChoice `json:"choices,omitempty"`
	Usage   *Usage             `json:"usage,omitempty"`
}

func completionsPayload(req CompletionsRequest, stream bool) (map[string]any, error) {
	data, err := Payload(req)
	if err != nil {
		return nil, err
	}
	data["stream"] = stream
	return data, nil
}

// CompletionsService calls the completions endpoint.
type CompletionsService struct {
	api *ServingAPI
}

// Create runs a buffered completion. model must be empty for dedicated targets.
func (s *CompletionsService) Create(ctx context.Context, model string, req CompletionsRequest) (*Completion, error) {
	data, err := completionsPayload(req, false)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Request(ctx, CompletionsEndpoint{}, data, false, model)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*Completion](resp)
}

// CreateStream runs a streamed completion. The caller must Close the stream
// or range over All.
func (s *CompletionsService) CreateStream(ctx context.Context, model string, req CompletionsRequest) (*Stream[CompletionEvent], error) {
	data, err := completionsPayload(req, true)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Request(ctx, CompletionsEndpoint{}, data, true, model)
	if err != nil {
		return nil, err
	}
	return NewStream(resp, JSONLineDecoder[CompletionEvent]()), nil
}

// AsyncCompletionsService is CompletionsService over the non-blocking executor.
type AsyncCompletionsService struct {
	api *AsyncServingAPI
}

// Create schedules a buffered completion.
func (s *AsyncCompletionsService) Create(ctx context.Context, model string, req CompletionsRequest) *Pending[*Completion] {
	data, err := completionsPayload(req, false)
	if err != nil {
		return failedPending[*Completion](err)
	}
	f := s.api.Request(ctx, CompletionsEndpoint{}, data, false, model)
	return newPending(f, decodeJSON[*Completion])
}

// CreateStream schedules a streamed completion. The stream stops when ctx is
// cancelled.
func (s *AsyncCompletionsService) CreateStream(ctx context.Context, model string, req CompletionsRequest) *Pending[*AsyncStream[CompletionEvent]] {
	data, err := completionsPayload(req, true)
	if err != nil {
		return failedPending[*AsyncStream[CompletionEvent]](err)
	}
	f := s.api.Request(ctx, CompletionsEndpoint{}, data, true, model)
	return newPending(f, func(resp *http.Response) (*AsyncStream[CompletionEvent], error) {
		return NewAsyncStream(ctx, resp, JSONLineDecoder[CompletionEvent]()), nil
	})
}
