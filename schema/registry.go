// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Built-in schema names, one per call type that supports binary encoding.
const (
	Completions     = "completions"
	ChatCompletions = "chat_completions"
	TextToImage     = "text_to_image"
)

var ErrUnknownSchema = errors.New("schema: unknown schema")

var (
	registryMu sync.RWMutex
	registry   = map[string]*Schema{}
)

func init() {
	fd, err := buildFile()
	if err != nil {
		panic(fmt.Sprintf("schema: build descriptors: %v", err))
	}
	for name, msg := range map[string]protoreflect.Name{
		Completions:     "V1CompletionsRequest",
		ChatCompletions: "V1ChatCompletionsRequest",
		TextToImage:     "V1TextToImageRequest",
	} {
		registry[name] = New(name, fd.Messages().ByName(msg))
	}
}

// Register adds or replaces the schema for a call type tag.
func Register(name string, desc protoreflect.MessageDescriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = New(name, desc)
}

// Lookup returns the schema registered under name.
func Lookup(name string) (*Schema, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Has checks if a schema is registered under name
func Has(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names returns the registered schema names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]string, 0, len(registry))
	for name := range registry {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
