// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auth supplies the authentication headers attached to every
// serving API request. Token acquisition and refresh are out of scope; a
// Provider only reports what it already has.
package auth

import (
	"errors"
	"os"
)

// Environment variables read by Env.
const (
	EnvToken = "FRIENDLI_TOKEN"
	EnvTeam  = "FRIENDLI_TEAM"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderTeam          = "X-Friendli-Team"
)

var ErrTokenNotFound = errors.New("auth: token not found, set " + EnvToken)

// Provider produces the header name -> value pairs for one request.
type Provider interface {
	Headers() (map[string]string, error)
}

// ProviderFunc is a function adapter for Provider
type ProviderFunc func() (map[string]string, error)

func (f ProviderFunc) Headers() (map[string]string, error) { return f() }

// Static is a fixed token and optional team id.
type Static struct {
	Token  string
	TeamID string
}

func (s Static) Headers() (map[string]string, error) {
	h := make(map[string]string, 2)
	if s.Token != "" {
		h[HeaderAuthorization] = "Bearer " + s.Token
	}
	if s.TeamID != "" {
		h[HeaderTeam] = s.TeamID
	}
	return h, nil
}

// None sends no authentication headers.
var None Provider = Static{}

// Env reads the token and team id from the environment on every call.
type Env struct{}

func (Env) Headers() (map[string]string, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	return Static{Token: token, TeamID: os.Getenv(EnvTeam)}.Headers()
}
