// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/bartekus/compute-version/cmd/compute-version/commands"
	"github.com/bartekus/compute-version/cmd/compute-version/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(clierr.ExitCodeOf(err)))
	}
}
