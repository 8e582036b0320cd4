// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package app implements the friendli command tree.
//
// Every command shares GlobalOptions. Values resolve in the order flag,
// FRIENDLI_* environment variable, config file, default.
package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prnake/friendli-client"
	"github.com/prnake/friendli-client/auth"
)

const (
	cliName        = "friendli"
	cliDescription = "friendli - call the Friendli serving API"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	BaseURL    string
	Token      string
	Team       string
	EndpointID string
	Protobuf   bool

	ConfigFile string
	LogLevel   string
	LogFile    string

	logger *zap.Logger
}

// NewFriendliCommand creates the root command with all subcommands.
//
//	cmd := NewFriendliCommand()
//	if err := cmd.Execute(); err != nil {
//	    os.Exit(1)
//	}
func NewFriendliCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `friendli sends completions, chat and image generation requests to the
Friendli serving API.

Calls go to the serverless service unless --endpoint-id names a dedicated
deployment. Serverless calls need --model; dedicated calls must not set it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.BaseURL, "base-url", "",
		"serving API address (default: "+friendli.DefaultBaseURL+")")
	flags.StringVar(&opts.Token, "token", "", "personal access token")
	flags.StringVar(&opts.Team, "team", "", "team id sent with every request")
	flags.StringVar(&opts.EndpointID, "endpoint-id", "", "dedicated endpoint id")
	flags.BoolVar(&opts.Protobuf, "protobuf", false, "send request bodies as protobuf")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file, rotated")

	cmd.AddCommand(
		NewCompletionsCommand(opts),
		NewChatCommand(opts),
		NewImagesCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

func (o *GlobalOptions) target() friendli.Target {
	return friendli.Target{
		BaseURL:     o.BaseURL,
		EndpointID:  o.EndpointID,
		UseProtobuf: o.Protobuf,
	}
}

func (o *GlobalOptions) clientOptions() []friendli.Option {
	opts := []friendli.Option{friendli.WithLogger(o.logger)}
	if o.Token != "" {
		opts = append(opts, friendli.WithAuth(auth.Static{Token: o.Token, TeamID: o.Team}))
	}
	return opts
}

func (o *GlobalOptions) newClient() (*friendli.Client, error) {
	return friendli.NewClient(o.target(), o.clientOptions()...)
}

// dump prints the payload a call would send, decoded back from its wire form.
func (o *GlobalOptions) dump(w io.Writer, ep friendli.Endpoint, data map[string]any, model string) error {
	payload, enc, err := friendli.DescribeRequest(o.target(), ep, data, model)
	if err != nil {
		return err
	}
	return printJSON(w, map[string]any{
		"encoding": enc.String(),
		"path":     ep.APIPath(),
		"payload":  payload,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("print result: %w", err)
	}
	return nil
}
