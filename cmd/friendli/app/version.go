// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/prnake/friendli-client"
	"github.com/prnake/friendli-client/schema"
)

// VersionOptions holds options for the version command
type VersionOptions struct {
	*GlobalOptions

	Output string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &VersionOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")

	return cmd
}

func runVersion(cmd *cobra.Command, opts *VersionOptions) error {
	info := map[string]any{
		"version":    friendli.Version,
		"go_version": runtime.Version(),
		"schemas":    schema.Names(),
	}
	out := cmd.OutOrStdout()
	switch opts.Output {
	case "json":
		return printJSON(out, info)
	case "text":
		fmt.Fprintf(out, "%s %s (%s)\n", cliName, friendli.Version, runtime.Version())
		return nil
	default:
		return fmt.Errorf("unknown output format %q", opts.Output)
	}
}
