// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"github.com/spf13/cobra"

	"github.com/prnake/friendli-client"
)

// ImagesOptions holds options for images create
type ImagesOptions struct {
	*GlobalOptions

	Model             string
	Prompt            string
	NegativePrompt    string
	NumOutputs        int
	NumInferenceSteps int
	GuidanceScale     float64
	Seed              int
	ResponseFormat    string
	Dump              bool
}

// NewImagesCommand creates the images command group.
func NewImagesCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate images",
	}
	cmd.AddCommand(newImagesCreateCommand(globalOpts))
	return cmd
}

func newImagesCreateCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ImagesOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Generate images from a text prompt",
		Example: `  friendli images create --model stable-diffusion-v1-5 --prompt "an astronaut riding a horse"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImages(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model code (serverless only)")
	cmd.Flags().StringVarP(&opts.Prompt, "prompt", "p", "", "text prompt")
	cmd.Flags().StringVar(&opts.NegativePrompt, "negative-prompt", "", "what the image should not contain")
	cmd.Flags().IntVarP(&opts.NumOutputs, "num-outputs", "n", 1, "number of images")
	cmd.Flags().IntVar(&opts.NumInferenceSteps, "steps", 0, "number of denoising steps")
	cmd.Flags().Float64Var(&opts.GuidanceScale, "guidance-scale", 0, "prompt guidance scale")
	cmd.Flags().IntVar(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&opts.ResponseFormat, "response-format", "url", "url, png or jpeg")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the request payload instead of sending it")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func runImages(cmd *cobra.Command, opts *ImagesOptions) error {
	req := friendli.TextToImageRequest{
		Prompt:            opts.Prompt,
		NegativePrompt:    opts.NegativePrompt,
		NumOutputs:        opts.NumOutputs,
		NumInferenceSteps: opts.NumInferenceSteps,
		ResponseFormat:    opts.ResponseFormat,
	}
	if cmd.Flags().Changed("guidance-scale") {
		req.GuidanceScale = &opts.GuidanceScale
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &opts.Seed
	}

	out := cmd.OutOrStdout()
	if opts.Dump {
		data, err := friendli.Payload(req)
		if err != nil {
			return err
		}
		return opts.dump(out, friendli.TextToImageEndpoint{}, data, opts.Model)
	}

	client, err := opts.newClient()
	if err != nil {
		return err
	}
	resp, err := client.Images.TextToImage(cmd.Context(), opts.Model, req)
	if err != nil {
		return err
	}
	return printJSON(out, resp)
}
