// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prnake/friendli-client"
)

// ChatOptions holds options for chat create
type ChatOptions struct {
	*GlobalOptions

	Model       string
	Messages    []string
	MaxTokens   int
	Temperature float64
	Stream      bool
	Dump        bool
}

// NewChatCommand creates the chat command group.
func NewChatCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Generate chat completions",
	}
	cmd.AddCommand(newChatCreateCommand(globalOpts))
	return cmd
}

func newChatCreateCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ChatOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Continue a conversation",
		Example: `  friendli chat create --model meta-llama-3-8b-instruct \
    --message "system:You are a helpful assistant." \
    --message "user:Hello!"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model code (serverless only)")
	cmd.Flags().StringArrayVar(&opts.Messages, "message", nil, "message as role:content (repeatable, in order)")
	cmd.Flags().IntVar(&opts.MaxTokens, "max-tokens", 0, "maximum number of generated tokens")
	cmd.Flags().Float64Var(&opts.Temperature, "temperature", 1, "sampling temperature")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "print tokens as they are generated")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the request payload instead of sending it")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// parseMessages turns role:content pairs into messages. A value without a
// role is a user message.
func parseMessages(values []string) ([]friendli.Message, error) {
	msgs := make([]friendli.Message, 0, len(values))
	for _, v := range values {
		role, content, ok := strings.Cut(v, ":")
		if !ok {
			role, content = "user", v
		}
		switch role {
		case "system", "user", "assistant":
		default:
			return nil, fmt.Errorf("invalid message role %q", role)
		}
		msgs = append(msgs, friendli.Message{Role: role, Content: content})
	}
	return msgs, nil
}

func runChat(cmd *cobra.Command, opts *ChatOptions) error {
	msgs, err := parseMessages(opts.Messages)
	if err != nil {
		return err
	}
	req := friendli.ChatCompletionsRequest{
		Messages:  msgs,
		MaxTokens: opts.MaxTokens,
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = &opts.Temperature
	}

	out := cmd.OutOrStdout()
	if opts.Dump {
		data, err := friendli.Payload(req)
		if err != nil {
			return err
		}
		data["stream"] = opts.Stream
		return opts.dump(out, friendli.ChatCompletionsEndpoint{}, data, opts.Model)
	}

	client, err := opts.newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !opts.Stream {
		resp, err := client.ChatCompletions.Create(ctx, opts.Model, req)
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}

	stream, err := client.ChatCompletions.CreateStream(ctx, opts.Model, req)
	if err != nil {
		return err
	}
	for chunk, err := range stream.All() {
		if err != nil {
			return err
		}
		for _, c := range chunk.Choices {
			fmt.Fprint(out, c.Delta.Content)
		}
	}
	fmt.Fprintln(out)
	return nil
}
