// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command friendli calls the Friendli serving API from the shell.
package main

import (
	"os"

	"github.com/prnake/friendli-client/cmd/friendli/app"
)

func main() {
	if err := app.NewFriendliCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
