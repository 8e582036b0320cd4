// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"net/http"

	"github.com/prnake/friendli-client/schema"
)

// ChatCompletionsEndpoint is POST v1/chat/completions.
type ChatCompletionsEndpoint struct{}

func (ChatCompletionsEndpoint) APIPath() string     { return "v1/chat/completions" }
func (ChatCompletionsEndpoint) Method() string      { return http.MethodPost }
func (ChatCompletionsEndpoint) ContentType() string { return ContentTypeJSON }
func (ChatCompletionsEndpoint) Schema() string      { return schema.ChatCompletions }

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionsRequest is the body of a chat completion call.
type ChatCompletionsRequest struct {
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	N                int       `json:"n,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	Seed             []uint64  `json:"seed,omitempty"`
	TimeoutMicros    int       `json:"timeout_microseconds,omitempty"`
}

// ChatChoice is one generated reply.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletion is the buffered chat completions response.
type ChatCompletion struct {
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
	Created int64        `json:"created"`
}

// ChatDelta is the increment carried by one streamed chunk.
type ChatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChatChunkChoice is the per-choice part of a streamed chunk.
type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatCompletionChunk is one streamed chat line.
type ChatCompletionChunk struct {
	Choices []ChatChunkChoice `json:"choices"`
	Created int64             `json:"created"`
}

func chatPayload(req ChatCompletionsRequest, stream bool) (map[string]any, error) {
	data, err := Payload(req)
	if err != nil {
		return nil, err
	}
	data["stream"] = stream
	return data, nil
}

// ChatCompletionsService calls the chat completions endpoint.
type ChatCompletionsService struct {
	api *ServingAPI
}

// Create runs a buffered chat completion. model must be empty for dedicated targets.
func (s *ChatCompletionsService) Create(ctx context.Context, model string, req ChatCompletionsRequest) (*ChatCompletion, error) {
	data, err := chatPayload(req, false)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Request(ctx, ChatCompletionsEndpoint{}, data, false, model)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*ChatCompletion](resp)
}

// CreateStream runs a streamed chat completion. The caller must Close the
// stream or range over All.
func (s *ChatCompletionsService) CreateStream(ctx context.Context, model string, req ChatCompletionsRequest) (*Stream[ChatCompletionChunk], error) {
	data, err := chatPayload(req, true)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Request(ctx, ChatCompletionsEndpoint{}, data, true, model)
	if err != nil {
		return nil, err
	}
	return NewStream(resp, JSONLineDecoder[ChatCompletionChunk]()), nil
}

// AsyncChatCompletionsService is ChatCompletionsService over the non-blocking executor.
type AsyncChatCompletionsService struct {
	api *AsyncServingAPI
}

// Create schedules a buffered chat completion.
func (s *AsyncChatCompletionsService) Create(ctx context.Context, model string, req ChatCompletionsRequest) *Pending[*ChatCompletion] {
	data, err := chatPayload(req, false)
	if err != nil {
		return failedPending[*ChatCompletion](err)
	}
	f := s.api.Request(ctx, ChatCompletionsEndpoint{}, data, false, model)
	return newPending(f, decodeJSON[*ChatCompletion])
}

// CreateStream schedules a streamed chat completion. The stream stops when
// ctx is cancelled.
func (s *AsyncChatCompletionsService) CreateStream(ctx context.Context, model string, req ChatCompletionsRequest) *Pending[*AsyncStream[ChatCompletionChunk]] {
	data, err := chatPayload(req, true)
	if err != nil {
		return failedPending[*AsyncStream[ChatCompletionChunk]](err)
	}
	f := s.api.Request(ctx, ChatCompletionsEndpoint{}, data, true, model)
	return newPending(f, func(resp *http.Response) (*AsyncStream[ChatCompletionChunk], error) {
		return NewAsyncStream(ctx, resp, JSONLineDecoder[ChatCompletionChunk]()), nil
	})
}
