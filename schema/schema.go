// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package schema holds the binary (protobuf) wire schemas of the serving API.
//
// A Schema converts a generic key-value payload into its protobuf encoding and
// back. Parsing is strict: a payload key the schema does not know is an error,
// never silently dropped.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	strictJSON = protojson.UnmarshalOptions{DiscardUnknown: false}
	protoNames = protojson.MarshalOptions{UseProtoNames: true}
)

// Error reports a payload that does not conform to a binary schema.
type Error struct {
	Schema string
	Op     string // "encode" or "decode"
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema %s: %s: %v", e.Schema, e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Schema is the binary wire schema of one call type.
type Schema struct {
	name string
	desc protoreflect.MessageDescriptor
}

// New wraps a message descriptor as a named schema.
func New(name string, desc protoreflect.MessageDescriptor) *Schema {
	return &Schema{name: name, desc: desc}
}

func (s *Schema) Name() string { return s.name }

func (s *Schema) Descriptor() protoreflect.MessageDescriptor { return s.desc }

// Encode parses data against the schema and returns the protobuf bytes.
func (s *Schema) Encode(data map[string]any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, s.fail("encode", err)
	}
	msg := dynamicpb.NewMessage(s.desc)
	if err := strictJSON.Unmarshal(raw, msg); err != nil {
		return nil, s.fail("encode", err)
	}
	b, err := proto.Marshal(msg)
	if err != nil {
		return nil, s.fail("encode", err)
	}
	return b, nil
}

// Decode is the inverse of Encode. Keys use the schema's field names; fields
// that were never set are absent. 32-bit integers and floats come back as
// float64, 64-bit integers as int64 or uint64 so no precision is lost.
func (s *Schema) Decode(b []byte) (map[string]any, error) {
	msg := dynamicpb.NewMessage(s.desc)
	if err := proto.Unmarshal(b, msg); err != nil {
		return nil, s.fail("decode", err)
	}
	raw, err := protoNames.Marshal(msg)
	if err != nil {
		return nil, s.fail("decode", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, s.fail("decode", err)
	}
	if err := restore64(s.desc, out); err != nil {
		return nil, s.fail("decode", err)
	}
	return out, nil
}

// restore64 turns the quoted 64-bit integers protojson emits back into
// int64 and uint64 values, recursing into nested messages.
func restore64(md protoreflect.MessageDescriptor, m map[string]any) error {
	fields := md.Fields()
	for k, v := range m {
		fd := fields.ByName(protoreflect.Name(k))
		if fd == nil {
			continue
		}
		if fd.IsList() {
			items, ok := v.([]any)
			if !ok {
				continue
			}
			for i, item := range items {
				n, err := restoreValue(fd, item)
				if err != nil {
					return fmt.Errorf("field %s: %w", k, err)
				}
				items[i] = n
			}
			continue
		}
		n, err := restoreValue(fd, v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		m[k] = n
	}
	return nil
}

func restoreValue(fd protoreflect.FieldDescriptor, v any) (any, error) {
	switch fd.Kind() {
	case protoreflect.MessageKind:
		if sub, ok := v.(map[string]any); ok {
			return sub, restore64(fd.Message(), sub)
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if str, ok := v.(string); ok {
			return strconv.ParseInt(str, 10, 64)
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if str, ok := v.(string); ok {
			return strconv.ParseUint(str, 10, 64)
		}
	}
	return v, nil
}

func (s *Schema) fail(op string, err error) error {
	return &Error{Schema: s.name, Op: op, Cause: err}
}
