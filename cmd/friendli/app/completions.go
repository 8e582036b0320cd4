// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prnake/friendli-client"
)

// CompletionsOptions holds options for completions create
type CompletionsOptions struct {
	*GlobalOptions

	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
	Stream      bool
	Dump        bool
}

// NewCompletionsCommand creates the completions command group.
func NewCompletionsCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completions",
		Short: "Generate text completions",
	}
	cmd.AddCommand(newCompletionsCreateCommand(globalOpts))
	return cmd
}

func newCompletionsCreateCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &CompletionsOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Complete a prompt",
		Example: `  # Serverless
  friendli completions create --model meta-llama-3-8b-instruct --prompt "Say this is a test"

  # Dedicated endpoint, streamed
  friendli completions create --endpoint-id abc123 --prompt "Say this is a test" --stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompletions(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model code (serverless only)")
	cmd.Flags().StringVarP(&opts.Prompt, "prompt", "p", "", "input prompt")
	cmd.Flags().IntVar(&opts.MaxTokens, "max-tokens", 0, "maximum number of generated tokens")
	cmd.Flags().Float64Var(&opts.Temperature, "temperature", 1, "sampling temperature")
	cmd.Flags().Float64Var(&opts.TopP, "top-p", 1, "nucleus sampling probability")
	cmd.Flags().StringArrayVar(&opts.Stop, "stop", nil, "stop sequence (repeatable)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "print tokens as they are generated")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the request payload instead of sending it")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func runCompletions(cmd *cobra.Command, opts *CompletionsOptions) error {
	req := friendli.CompletionsRequest{
		Prompt:    opts.Prompt,
		MaxTokens: opts.MaxTokens,
		Stop:      opts.Stop,
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = &opts.Temperature
	}
	if cmd.Flags().Changed("top-p") {
		req.TopP = &opts.TopP
	}

	out := cmd.OutOrStdout()
	if opts.Dump {
		data, err := friendli.Payload(req)
		if err != nil {
			return err
		}
		data["stream"] = opts.Stream
		return opts.dump(out, friendli.CompletionsEndpoint{}, data, opts.Model)
	}

	client, err := opts.newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !opts.Stream {
		resp, err := client.Completions.Create(ctx, opts.Model, req)
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}

	stream, err := client.Completions.CreateStream(ctx, opts.Model, req)
	if err != nil {
		return err
	}
	for ev, err := range stream.All() {
		if err != nil {
			return err
		}
		if ev.Event == "token_sampled" {
			fmt.Fprint(out, ev.Text)
		}
	}
	fmt.Fprintln(out)
	return nil
}
