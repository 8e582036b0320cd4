// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Version is reported in the User-Agent header.
const Version = "0.1.0"

// Payload converts a request struct into the map ServingAPI.Request takes.
// Numbers stay json.Number so integers are not widened to floats.
func Payload(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	data := make(map[string]any)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// decodeJSON reads a buffered response into T and closes the body.
func decodeJSON[T any](resp *http.Response) (T, error) {
	var out T
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Usage reports token counts of a generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
