// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"context"
	"net/http"

	"github.com/prnake/friendli-client/schema"
)

// TextToImageEndpoint is POST v1/text-to-image. Its payload is sent as
// multipart form fields.
type TextToImageEndpoint struct{}

func (TextToImageEndpoint) APIPath() string     { return "v1/text-to-image" }
func (TextToImageEndpoint) Method() string      { return http.MethodPost }
func (TextToImageEndpoint) ContentType() string { return ContentTypeMultipart }
func (TextToImageEndpoint) Schema() string      { return schema.TextToImage }

// TextToImageRequest is the body of an image generation call.
type TextToImageRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	NumOutputs        int      `json:"num_outputs,omitempty"`
	NumInferenceSteps int      `json:"num_inference_steps,omitempty"`
	GuidanceScale     *float64 `json:"guidance_scale,omitempty"`
	Seed              *int     `json:"seed,omitempty"`
	// ResponseFormat is "url" or "png"/"jpeg" for inline base64 data.
	ResponseFormat string `json:"response_format,omitempty"`
}

// ImageData is one generated image, by URL or inline.
type ImageData struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
	Seed    int64  `json:"seed,omitempty"`
}

// ImageGeneration is the text-to-image response.
type ImageGeneration struct {
	Data []ImageData `json:"data"`
}

// ImagesService calls the image generation endpoints.
type ImagesService struct {
	api *ServingAPI
}

// TextToImage generates images from a prompt. model must be empty for
// dedicated targets.
func (s *ImagesService) TextToImage(ctx context.Context, model string, req TextToImageRequest) (*ImageGeneration, error) {
	data, err := Payload(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Request(ctx, TextToImageEndpoint{}, data, false, model)
	if err != nil {
		return nil, err
	}
	return decodeJSON[*ImageGeneration](resp)
}

// AsyncImagesService is ImagesService over the non-blocking executor.
type AsyncImagesService struct {
	api *AsyncServingAPI
}

// TextToImage schedules an image generation.
func (s *AsyncImagesService) TextToImage(ctx context.Context, model string, req TextToImageRequest) *Pending[*ImageGeneration] {
	data, err := Payload(req)
	if err != nil {
		return failedPending[*ImageGeneration](err)
	}
	f := s.api.Request(ctx, TextToImageEndpoint{}, data, false, model)
	return newPending(f, decodeJSON[*ImageGeneration])
}
