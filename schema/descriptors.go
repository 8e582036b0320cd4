// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoFile    = "friendli/v1/serving.proto"
	protoPackage = "friendli.v1"
)

type fieldKind = descriptorpb.FieldDescriptorProto_Type

const (
	kindBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	kindString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	kindInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	kindUint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	kindFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	kindMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

type field struct {
	name     string
	kind     fieldKind
	repeated bool
	typeName string // fully qualified, message fields only
}

func scalar(name string, kind fieldKind) field { return field{name: name, kind: kind} }

func list(name string, kind fieldKind) field { return field{name: name, kind: kind, repeated: true} }

func messages(name, typeName string) field {
	return field{name: name, kind: kindMessage, repeated: true, typeName: typeName}
}

// message builds a proto3 message. Singular scalars are declared optional so
// that explicitly set zero values survive a round trip.
func message(name string, fields []field, nested ...*descriptorpb.DescriptorProto) *descriptorpb.DescriptorProto {
	m := &descriptorpb.DescriptorProto{
		Name:       proto.String(name),
		NestedType: nested,
	}
	for i, f := range fields {
		fd := &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(f.name),
			Number: proto.Int32(int32(i + 1)),
			Type:   f.kind.Enum(),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		}
		if f.typeName != "" {
			fd.TypeName = proto.String(f.typeName)
		}
		switch {
		case f.repeated:
			fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
		case f.kind != kindMessage:
			fd.Proto3Optional = proto.Bool(true)
			fd.OneofIndex = proto.Int32(int32(len(m.OneofDecl)))
			m.OneofDecl = append(m.OneofDecl, &descriptorpb.OneofDescriptorProto{
				Name: proto.String("_" + f.name),
			})
		}
		m.Field = append(m.Field, fd)
	}
	return m
}

func tokenSequence() *descriptorpb.DescriptorProto {
	return message("TokenSequence", []field{
		list("tokens", kindInt32),
	})
}

func completionsRequest() *descriptorpb.DescriptorProto {
	const seq = "." + protoPackage + ".V1CompletionsRequest.TokenSequence"
	return message("V1CompletionsRequest", []field{
		scalar("stream", kindBool),
		scalar("model", kindString),
		scalar("prompt", kindString),
		list("tokens", kindInt32),
		scalar("timeout_microseconds", kindInt32),
		scalar("max_tokens", kindInt32),
		scalar("max_total_tokens", kindInt32),
		scalar("min_tokens", kindInt32),
		scalar("min_total_tokens", kindInt32),
		scalar("n", kindInt32),
		scalar("num_beams", kindInt32),
		scalar("length_penalty", kindFloat),
		scalar("early_stopping", kindBool),
		scalar("no_repeat_ngram", kindInt32),
		scalar("encoder_no_repeat_ngram", kindInt32),
		scalar("repetition_penalty", kindFloat),
		scalar("encoder_repetition_penalty", kindFloat),
		scalar("frequency_penalty", kindFloat),
		scalar("presence_penalty", kindFloat),
		scalar("temperature", kindFloat),
		scalar("top_k", kindInt32),
		scalar("top_p", kindFloat),
		list("stop", kindString),
		messages("stop_tokens", seq),
		list("seed", kindUint64),
		list("token_index_to_replace", kindInt32),
		list("embedding_to_replace", kindFloat),
		scalar("beam_search_type", kindString),
		scalar("beam_compat_pre_normalization", kindBool),
		scalar("beam_compat_no_post_normalization", kindBool),
		list("bad_words", kindString),
		messages("bad_word_tokens", seq),
		scalar("include_output_logits", kindBool),
		scalar("include_output_logprobs", kindBool),
		list("forced_output_tokens", kindInt32),
		list("eos_token", kindInt32),
	}, tokenSequence())
}

func chatCompletionsRequest() *descriptorpb.DescriptorProto {
	return message("V1ChatCompletionsRequest", []field{
		messages("messages", "."+protoPackage+".V1ChatCompletionsRequest.Message"),
		scalar("model", kindString),
		scalar("stream", kindBool),
		scalar("frequency_penalty", kindFloat),
		scalar("max_tokens", kindInt32),
		scalar("n", kindInt32),
		scalar("presence_penalty", kindFloat),
		list("stop", kindString),
		scalar("temperature", kindFloat),
		scalar("top_p", kindFloat),
		scalar("timeout_microseconds", kindInt32),
		list("seed", kindUint64),
	}, message("Message", []field{
		scalar("content", kindString),
		scalar("role", kindString),
	}))
}

func textToImageRequest() *descriptorpb.DescriptorProto {
	return message("V1TextToImageRequest", []field{
		scalar("prompt", kindString),
		scalar("negative_prompt", kindString),
		scalar("num_outputs", kindInt32),
		scalar("num_inference_steps", kindInt32),
		scalar("guidance_scale", kindFloat),
		scalar("seed", kindInt32),
		scalar("response_format", kindString),
		scalar("model", kindString),
	})
}

// buildFile assembles the serving request descriptors without generated code.
func buildFile() (protoreflect.FileDescriptor, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			completionsRequest(),
			chatCompletionsRequest(),
			textToImageRequest(),
		},
	}
	return protodesc.NewFile(fdp, new(protoregistry.Files))
}
