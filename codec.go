// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prnake/friendli-client/schema"
)

// Content types understood by the request builder.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeProtobuf  = "application/protobuf"
	ContentTypeMultipart = "multipart/form-data"
)

// Encoding is the wire encoding of a request body.
type Encoding uint8

const (
	EncodingJSON Encoding = iota
	EncodingBinary
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingBinary:
		return "binary"
	case EncodingMultipart:
		return "multipart"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// encodingFor picks the encoding from the declared content type. Multipart
// wins over the binary flag; the binary flag only applies to call types that
// declare a schema.
func encodingFor(contentType string, useProtobuf bool) Encoding {
	switch {
	case strings.HasPrefix(contentType, ContentTypeMultipart):
		return EncodingMultipart
	case useProtobuf:
		return EncodingBinary
	default:
		return EncodingJSON
	}
}

// Codec encodes a payload into request body bytes and back.
type Codec interface {
	ContentType() string
	Encode(data map[string]any) ([]byte, error)
	Decode(b []byte) (map[string]any, error)
}

// JSONCodec is the default codec
type JSONCodec struct{}

func (JSONCodec) ContentType() string { return ContentTypeJSON }

func (JSONCodec) Encode(data map[string]any) ([]byte, error) {
	return json.Marshal(data)
}

func (JSONCodec) Decode(b []byte) (map[string]any, error) {
	out := make(map[string]any)
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BinaryCodec serializes payloads against a protobuf schema.
type BinaryCodec struct {
	Schema *schema.Schema
}

// NewBinaryCodec looks up the named schema.
func NewBinaryCodec(name string) (*BinaryCodec, error) {
	if name == "" {
		return nil, &SchemaError{Schema: name, Op: "lookup", Cause: schema.ErrUnknownSchema}
	}
	s, err := schema.Lookup(name)
	if err != nil {
		return nil, &SchemaError{Schema: name, Op: "lookup", Cause: err}
	}
	return &BinaryCodec{Schema: s}, nil
}

func (c *BinaryCodec) ContentType() string { return ContentTypeProtobuf }

func (c *BinaryCodec) Encode(data map[string]any) ([]byte, error) {
	return c.Schema.Encode(data)
}

func (c *BinaryCodec) Decode(b []byte) (map[string]any, error) {
	return c.Schema.Decode(b)
}

// DecodeBinaryRequest turns a binary request body back into its payload.
func DecodeBinaryRequest(schemaName string, b []byte) (map[string]any, error) {
	c, err := NewBinaryCodec(schemaName)
	if err != nil {
		return nil, err
	}
	return c.Decode(b)
}
