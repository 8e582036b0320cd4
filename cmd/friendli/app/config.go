// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix makes --endpoint-id readable from FRIENDLI_ENDPOINT_ID. The token
// and team keys coincide with the variables package auth reads.
const envPrefix = "FRIENDLI"

func newViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// complete resolves the global options for the command about to run and
// builds the logger.
func (o *GlobalOptions) complete(cmd *cobra.Command) error {
	v, err := newViper(cmd, o.ConfigFile)
	if err != nil {
		return err
	}
	o.BaseURL = v.GetString("base-url")
	o.Token = v.GetString("token")
	o.Team = v.GetString("team")
	o.EndpointID = v.GetString("endpoint-id")
	o.Protobuf = v.GetBool("protobuf")
	o.LogLevel = v.GetString("log-level")
	o.LogFile = v.GetString("log-file")

	logger, err := newLogger(o.LogLevel, o.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger.Named(cliName)
	return nil
}
