// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package friendli is a client for the Friendli serving API.
//
// # Targets
//
// A Target selects the serverless service (shared, model chosen per call) or a
// dedicated deployment (fixed EndpointID). Exactly one of the endpoint id and
// the per-call model must be present:
//
//	serverless := friendli.Target{}                          // model required
//	dedicated := friendli.Target{EndpointID: "abc123xyz"}    // model forbidden
//
// Dedicated calls are routed under /dedicated.
//
// # Usage
//
//	client, err := friendli.NewClient(friendli.Target{}, friendli.WithToken(token))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Buffered call
//	resp, err := client.Completions.Create(ctx, "meta-llama-3-8b-instruct",
//	    friendli.CompletionsRequest{Prompt: "Say this is a test", MaxTokens: 16})
//
//	// Streamed call
//	stream, err := client.ChatCompletions.CreateStream(ctx, model, req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for chunk, err := range stream.All() {
//	    ...
//	}
//
// NewAsyncClient mirrors Client: calls return a Pending that is awaited, and
// streams are AsyncStreams whose Next suspends per record.
//
// # Wire encodings
//
// Request bodies are JSON by default. Target.UseProtobuf switches call types
// that declare a binary schema to protobuf (see package schema); multipart call
// types always send form fields.
//
// # Errors
//
//   - ErrModelRequired, ErrModelNotAllowed: misconfigured target/model, no request sent
//   - *APIError: non-2xx response; 404 has a fixed message, other codes carry the body
//   - *SchemaError: the payload does not fit the binary schema
//   - anything else: transport failure from the http.Client, unchanged
//
// Nothing is retried.
//
// # Architecture
//
//   - client.go: Endpoint, Target, options, typed clients
//   - request.go: request builder (URL, model injection, body, headers), DescribeRequest
//   - codec.go: JSON and binary codecs
//   - errors.go: error translation
//   - serving.go, async.go: blocking and non-blocking executors
//   - stream.go: streaming decoders
//   - transport.go: default HTTP transport
//   - metrics.go: Prometheus collectors
//   - completions.go, chat.go, images.go, payload.go: typed resources
package friendli
