// dashgate serves a directory of dashboard assets behind a per-process access token.
// Single binary. Open the printed URL; the token rides along as ?token=.
package main

import (
	"os"

	"github.com/corey/dashgate/cmd/dashgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
